package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/notification-triage/internal/filter"
	"github.com/nhle/notification-triage/internal/model"
)

// ErrNotFound is returned when a notification id has no row.
var ErrNotFound = errors.New("notification not found")

// Store defines the persistence interface for notifications.
type Store interface {
	// UpsertNotification inserts n, or overwrites the existing row with the
	// same id while keeping its score_boost and clearing done.
	UpsertNotification(ctx context.Context, n model.Notification) error

	// GetNotifications returns the not-done notifications matching q,
	// highest score+score_boost first, then most recently updated.
	GetNotifications(ctx context.Context, q filter.Query) ([]model.Notification, error)
	GetNotification(ctx context.Context, id string) (*model.Notification, error)

	// UpdateBoost adds delta to the stored score_boost of id.
	UpdateBoost(ctx context.Context, id string, delta int) error
	SetDone(ctx context.Context, id string, done bool) error
	SetDoneBulk(ctx context.Context, ids []string) error
	SetUnread(ctx context.Context, id string, unread bool) error

	// LatestUpdate returns the most recent updated_at across all rows,
	// or nil when the store is empty.
	LatestUpdate(ctx context.Context) (*time.Time, error)

	Close() error
}
