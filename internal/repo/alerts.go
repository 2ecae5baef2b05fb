package repo

import (
	"context"
	"time"
)

// AlertRecord holds the last state we alerted on and the last time we sent a
// notification for a key (the monitored target). LastSentAt drives the cooldown.
type AlertRecord struct {
	Key        string
	LastDown   bool
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, key string) (*AlertRecord, error)
	// Set upserts the record. If sentAt.IsZero() the previous send time is kept.
	Set(ctx context.Context, key string, lastDown bool, sentAt time.Time) error
}
