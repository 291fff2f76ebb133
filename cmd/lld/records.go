package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/debounce"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/format"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/graphql"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/paging"
)

// completionSource fetches one cursor page of chat completions.
type completionSource interface {
	FetchChatCompletions(ctx context.Context, cursor int64, limit int, policy graphql.FetchPolicy) ([]models.ChatCompletion, error)
}

func newCompletionsCmd(opts *globalOptions) *cobra.Command {
	var (
		cursorText string
		limit      int
		pages      int
		formatFlag string
		noHeader   bool
	)

	cmd := &cobra.Command{
		Use:   "completions",
		Short: "Print chat completions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(formatFlag); err != nil {
				return err
			}
			cursor, err := debounce.ResolveCursor(cursorText)
			if err != nil {
				return fmt.Errorf("invalid --cursor value: %w", err)
			}
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1, got %d", pages)
			}

			mgr, err := opts.openManager(cmd, false)
			if err != nil {
				return err
			}
			defer closeManager(mgr)

			if limit <= 0 {
				limit = mgr.Config().PageSize
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			items, err := collectCompletions(ctx, mgr, cursor, limit, pages)
			if err != nil {
				return fmt.Errorf("failed to fetch chat completions: %w", err)
			}
			return format.WriteCompletions(cmd.OutOrStdout(), items, !noHeader, formatFlag)
		},
	}

	cmd.Flags().StringVar(&cursorText, "cursor", "", "highest record id to include (default: newest)")
	cmd.Flags().IntVar(&limit, "limit", 0, "records per page (default: configured page size)")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")
	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format ("+strings.Join(format.Formats, ", ")+")")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the header row")

	return cmd
}

// collectCompletions walks up to pages cursor pages starting at cursor. It
// stops early at the end of data.
func collectCompletions(ctx context.Context, src completionSource, cursor int64, limit, pages int) ([]models.ChatCompletion, error) {
	ctrl := paging.NewController[models.ChatCompletion](limit)
	req := ctrl.Reset(cursor)

	for fetched := 1; ; fetched++ {
		items, err := src.FetchChatCompletions(ctx, req.Cursor, req.Limit, graphql.NetworkOnly)
		if ctrl.Complete(req.Seq, items, err) == paging.Failed {
			return nil, ctrl.Err()
		}
		if fetched >= pages {
			break
		}
		next, ok := ctrl.LoadMore()
		if !ok {
			break
		}
		req = next
	}
	return ctrl.Items(), nil
}

func newAgentsCmd(opts *globalOptions) *cobra.Command {
	var (
		page       int
		limit      int
		formatFlag string
		noHeader   bool
	)

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Print one page of agent statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(formatFlag); err != nil {
				return err
			}
			if page < 1 {
				return fmt.Errorf("--page must be at least 1, got %d", page)
			}

			mgr, err := opts.openManager(cmd, false)
			if err != nil {
				return err
			}
			defer closeManager(mgr)

			if limit <= 0 {
				limit = mgr.Config().AgentPageSize
			}
			pager := paging.OffsetPager{Page: page, Limit: limit}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			items, err := mgr.FetchAgentStatuses(ctx, pager.Limit, pager.Offset(), graphql.NetworkOnly)
			if err != nil {
				return fmt.Errorf("failed to fetch agent statuses: %w", err)
			}
			return format.WriteAgents(cmd.OutOrStdout(), items, !noHeader, formatFlag)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows per page (default: configured agent page size)")
	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format ("+strings.Join(format.Formats, ", ")+")")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the header row")

	return cmd
}

func checkFormat(name string) error {
	for _, f := range format.Formats {
		if strings.EqualFold(name, f) {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (want one of %s)", name, strings.Join(format.Formats, ", "))
}
