package inquiries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindGig(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	Create(ctx context.Context, inquiry *models.Inquiry) error
	Find(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Inquiry, error)
	// Save writes inquiry only if the stored row still has expectStatus and
	// expectRound.
	Save(ctx context.Context, inquiry *models.Inquiry, expectStatus enums.InquiryStatus, expectRound int) (bool, error)
	DeletePending(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindGig(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	var gig models.Gig
	if err := r.db.WithContext(ctx).First(&gig, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &gig, nil
}

func (r *repository) Create(ctx context.Context, inquiry *models.Inquiry) error {
	return r.db.WithContext(ctx).Create(inquiry).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	if err := r.db.WithContext(ctx).First(&inquiry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Inquiry, error) {
	var rows []models.Inquiry
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? OR supplier_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Save(ctx context.Context, inquiry *models.Inquiry, expectStatus enums.InquiryStatus, expectRound int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("id = ? AND status = ? AND round = ?", inquiry.ID, expectStatus, expectRound).
		Updates(map[string]any{
			"proposed_quantity": inquiry.ProposedQuantity,
			"proposed_price":    inquiry.ProposedPrice,
			"final_quantity":    inquiry.FinalQuantity,
			"final_price":       inquiry.FinalPrice,
			"message":           inquiry.Message,
			"status":            inquiry.Status,
			"round":             inquiry.Round,
			"updated_at":        inquiry.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DeletePending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, enums.InquiryStatusPending).
		Delete(&models.Inquiry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
