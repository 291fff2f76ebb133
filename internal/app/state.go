// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Duration  time.Duration
	Type      NotificationType
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// State is shared between the root model and the tabs. Tabs report what
// they are loading here so the root model can show a single loading toast.
type State struct {
	mu sync.RWMutex

	loading     map[string]bool
	lastUpdated map[string]time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty application state.
func NewState() *State {
	return &State{
		loading:       make(map[string]bool),
		lastUpdated:   make(map[string]time.Time),
		notifications: make([]Notification, 0),
	}
}

// SetLoading marks a resource as loading or done. Finishing a load records
// the time as the resource's last update.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loading {
		s.loading[resource] = true
		return
	}
	if s.loading[resource] {
		s.lastUpdated[resource] = time.Now()
	}
	delete(s.loading, resource)
}

// BeginLoading marks resource as loading and shows the loading toast. Tabs
// call it from Update so it is ordered before the matching EndLoading.
func (s *State) BeginLoading(resource string) {
	s.SetLoading(resource, true)
	s.SetLoadingNotification("Loading " + resource + "...")
}

// EndLoading marks resource as done and drops the loading toast once
// nothing else is loading.
func (s *State) EndLoading(resource string) {
	s.SetLoading(resource, false)
	if !s.AnyLoading() {
		s.ClearLoadingNotification()
	}
}

// IsLoading reports whether resource is loading.
func (s *State) IsLoading(resource string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[resource]
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loading) > 0
}

// GetLoadingResources returns the sorted names of loading resources.
func (s *State) GetLoadingResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := make([]string, 0, len(s.loading))
	for r := range s.loading {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	return resources
}

// LastUpdated returns when resource last finished loading.
func (s *State) LastUpdated(resource string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated[resource]
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// ClearAllNotifications removes all notifications.
func (s *State) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = make([]Notification, 0)
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}
