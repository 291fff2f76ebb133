package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/graphql"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/logger"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// saveActiveTabCmd persists the active tab so the next session opens on it.
func saveActiveTabCmd(mgr *services.Manager, tab TabID) tea.Cmd {
	return func() tea.Msg {
		if err := mgr.SaveActiveTab(tab.Key()); err != nil {
			logger.Warn("failed to save active tab", "tab", tab.Key(), "error", err)
		}
		return nil
	}
}

// Notify returns a command that adds a notification of the given type with
// the default duration for that type.
func Notify(notifType NotificationType, message string) tea.Cmd {
	duration := DefaultNotificationDuration
	switch notifType {
	case NotificationError:
		duration = LongNotificationDuration
	case NotificationInfo:
		duration = QuickNotificationDuration
	}
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     notifType,
			Message:  message,
			Duration: duration,
		}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return Notify(NotificationSuccess, message)
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return Notify(NotificationError, message)
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return Notify(NotificationWarning, message)
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return Notify(NotificationInfo, message)
}

// DescribeError turns a fetch or mutation error into a message for the
// user. Transport failures and backend-reported errors read differently.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var te *graphql.TransportError
	var qe *graphql.QueryError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Backend did not answer in time"
	case errors.As(err, &te):
		if te.StatusCode != 0 {
			return fmt.Sprintf("Backend unavailable (HTTP %d) during %s", te.StatusCode, te.Op)
		}
		return fmt.Sprintf("Cannot reach backend: %v", te.Err)
	case errors.As(err, &qe):
		msgs := make([]string, 0, len(qe.Errors))
		for _, e := range qe.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Sprintf("Backend rejected %s: %s", qe.Op, strings.Join(msgs, "; "))
	default:
		return err.Error()
	}
}
