// Package notification keeps the toast queue shown to a dashboard page.
package notification

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type NotificationService struct {
	mu            sync.Mutex
	notifications []Notification
	now           func() time.Time
}

func NewNotificationService() *NotificationService {
	return &NotificationService{
		notifications: make([]Notification, 0),
		now:           time.Now,
	}
}

// Notify queues a toast and returns it.
func (ns *NotificationService) Notify(level Level, title, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: ns.now(),
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.notifications = append(ns.notifications, n)
	return n
}

func (ns *NotificationService) GetNotifications() []Notification {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return slices.Clone(ns.notifications)
}

// Drain returns the queued toasts and empties the queue.
func (ns *NotificationService) Drain() []Notification {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := ns.notifications
	ns.notifications = make([]Notification, 0)
	return out
}

// Dismiss removes one toast by id.
func (ns *NotificationService) Dismiss(id string) bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	n := len(ns.notifications)
	ns.notifications = slices.DeleteFunc(ns.notifications, func(x Notification) bool { return x.ID == id })
	return len(ns.notifications) != n
}
