package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradehub/tradehub-backend/pkg/db/models"
)

const (
	maxErrorLen = 1024
	// DefaultClaimLease is how long a fetched batch stays invisible to
	// other publisher replicas.
	DefaultClaimLease = 30 * time.Second
)

type Repository struct {
	db    *gorm.DB
	lease time.Duration
	now   func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, lease: DefaultClaimLease, now: time.Now}
}

// WithLease overrides the claim lease; non-positive values are ignored.
func (r *Repository) WithLease(lease time.Duration) *Repository {
	if lease > 0 {
		r.lease = lease
	}
	return r
}

func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, event *models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.WithContext(ctx).Create(event).Error
}

// FetchUnpublished claims the oldest pending rows that still have attempts
// left and are not leased by another publisher. Rows locked by a concurrent
// claim are skipped rather than waited on.
func (r *Repository) FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	now := r.now().UTC()
	leaseEnd := now.Add(r.lease)

	var rows []models.OutboxEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("published_at IS NULL").
			Where("(locked_until IS NULL OR locked_until < ?)", now)
		if maxAttempts > 0 {
			q = q.Where("attempt_count < ?", maxAttempts)
		}
		if err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
			rows[i].LockedUntil = &leaseEnd
		}
		return tx.Model(&models.OutboxEvent{}).
			Where("id IN ?", ids).
			Update("locked_until", leaseEnd).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": r.now().UTC(),
			"locked_until": nil,
		}).Error
}

// MarkFailed records the error, counts the attempt and drops the lease so
// the next poll can retry the row.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = truncate(cause.Error(), maxErrorLen)
	}
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    msg,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"locked_until":  nil,
		}).Error
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
