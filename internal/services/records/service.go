// Package records fetches and mutates log records through the GraphQL client.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/graphql"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/paging"
)

// ErrEmptyAgentID is returned when a toggle names no agent.
var ErrEmptyAgentID = errors.New("agent id is required")

// Client is the subset of *graphql.Client the service needs.
type Client interface {
	Query(ctx context.Context, op graphql.Operation, vars map[string]any, out any, policy graphql.FetchPolicy) error
	Mutate(ctx context.Context, op graphql.Operation, vars map[string]any, out any) ([]string, error)
}

// Service exposes typed record operations.
type Service struct {
	client Client
}

// New creates a records service.
func New(client Client) *Service {
	return &Service{client: client}
}

// ChatCompletions returns up to limit records with id <= cursor, newest first.
func (s *Service) ChatCompletions(ctx context.Context, cursor int64, limit int, policy graphql.FetchPolicy) ([]models.ChatCompletion, error) {
	if cursor > paging.MaxCursor {
		cursor = paging.MaxCursor
	}

	var out struct {
		ChatCompletions []models.ChatCompletion `json:"chat_completions"`
	}
	vars := map[string]any{"cursor": cursor, "limit": limit}
	if err := s.client.Query(ctx, graphql.ChatCompletions, vars, &out, policy); err != nil {
		return nil, err
	}
	return out.ChatCompletions, nil
}

// AgentStatuses returns one offset page of agent statuses.
func (s *Service) AgentStatuses(ctx context.Context, limit, offset int, policy graphql.FetchPolicy) ([]models.AgentStatus, error) {
	var out struct {
		AgentStatus []models.AgentStatus `json:"agent_status"`
	}
	vars := map[string]any{"limit": limit, "offset": offset}
	if err := s.client.Query(ctx, graphql.AgentStatuses, vars, &out, policy); err != nil {
		return nil, err
	}
	return out.AgentStatus, nil
}

// SetAgentPaused sets the paused flag of one agent. It returns the mutation
// result and the names of the queries it invalidated.
func (s *Service) SetAgentPaused(ctx context.Context, agentID string, paused bool) (models.ToggleResult, []string, error) {
	if agentID == "" {
		return models.ToggleResult{}, nil, ErrEmptyAgentID
	}

	var out struct {
		Update *models.ToggleResult `json:"update_agent_status"`
	}
	vars := map[string]any{"agentId": agentID, "isPaused": paused}
	invalidated, err := s.client.Mutate(ctx, graphql.SetAgentPaused, vars, &out)
	if err != nil {
		return models.ToggleResult{}, nil, err
	}
	if out.Update == nil {
		return models.ToggleResult{}, invalidated, fmt.Errorf("%s: response had no update_agent_status field", graphql.SetAgentPaused.Name)
	}
	return *out.Update, invalidated, nil
}

// InsertChatCompletion records one chat completion. It returns the stored row
// and the names of the queries it invalidated.
func (s *Service) InsertChatCompletion(ctx context.Context, in models.NewChatCompletion) (models.ChatCompletion, []string, error) {
	var out struct {
		Inserted *models.ChatCompletion `json:"insert_chat_completions_one"`
	}
	vars := map[string]any{"object": in}
	invalidated, err := s.client.Mutate(ctx, graphql.InsertChatCompletion, vars, &out)
	if err != nil {
		return models.ChatCompletion{}, nil, err
	}
	if out.Inserted == nil {
		return models.ChatCompletion{}, invalidated, fmt.Errorf("%s: response had no insert_chat_completions_one field", graphql.InsertChatCompletion.Name)
	}
	return *out.Inserted, invalidated, nil
}
