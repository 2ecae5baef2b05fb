package repo

import (
	"context"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// Ports (interfaces): swap in any DB adapter.
type CheckStore interface {
	Append(ctx context.Context, r *domain.CheckRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.CheckRecord, error)
}
