package inquiries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/internal/authz"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
)

// Service negotiates quantity and price between a buyer and a gig's supplier.
type Service interface {
	Create(ctx context.Context, buyerID uuid.UUID, input CreateInput) (*models.Inquiry, error)
	Update(ctx context.Context, actorID, inquiryID uuid.UUID, input UpdateInput) (*models.Inquiry, error)
	Cancel(ctx context.Context, actorID, inquiryID uuid.UUID) error
	Get(ctx context.Context, actorID, inquiryID uuid.UUID) (*models.Inquiry, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Inquiry, error)
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, tx db.TxRunner, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inquiries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, outbox: emitter, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, buyerID uuid.UUID, input CreateInput) (*models.Inquiry, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.GigID == uuid.Nil || input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gigId and supplierId are required")
	}
	if input.RequestedQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requestedQuantity must be greater than zero")
	}
	if input.RequestedPrice != nil && !input.RequestedPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requestedPrice must be greater than zero")
	}
	if input.SupplierID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot send an inquiry to yourself")
	}
	gig, err := s.repo.FindGig(ctx, input.GigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gig not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gig")
	}
	if gig.SellerID != input.SupplierID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier does not offer this gig")
	}

	inquiry := &models.Inquiry{
		GigID:             gig.ID,
		BuyerID:           buyerID,
		SupplierID:        input.SupplierID,
		RequestedQuantity: input.RequestedQuantity,
		RequestedPrice:    input.RequestedPrice,
		Message:           trimmed(input.Message),
		Status:            enums.InquiryStatusPending,
		Round:             1,
	}
	if err := s.repo.Create(ctx, inquiry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inquiry")
	}
	return inquiry, nil
}

// Update applies one negotiation step. Acceptance freezes the latest terms
// without advancing the round; rejection ends the thread; anything else is a
// counter-offer that bumps the round.
func (s *service) Update(ctx context.Context, actorID, inquiryID uuid.UUID, input UpdateInput) (*models.Inquiry, error) {
	if err := validateUpdate(input); err != nil {
		return nil, err
	}
	var inquiry *models.Inquiry
	var accepted bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		inquiry, err = s.load(ctx, repo, inquiryID)
		if err != nil {
			return err
		}
		if err := authz.Require(actorID, authz.Inquiry(inquiry), authz.RelationBuyer, authz.RelationSupplier); err != nil {
			return err
		}
		if inquiry.Status.IsFinal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry is finalized").
				WithDetails(map[string]string{"status": string(inquiry.Status)})
		}

		prevStatus, prevRound := inquiry.Status, inquiry.Round
		if msg := trimmed(input.Message); msg != nil {
			inquiry.Message = msg
		}
		switch input.Status {
		case enums.InquiryStatusAccepted:
			if err := freezeTerms(inquiry); err != nil {
				return err
			}
			inquiry.Status = enums.InquiryStatusAccepted
			accepted = true
		case enums.InquiryStatusRejected:
			inquiry.Status = enums.InquiryStatusRejected
		default:
			if input.ProposedQuantity != nil {
				inquiry.ProposedQuantity = input.ProposedQuantity
			}
			if input.ProposedPrice != nil {
				inquiry.ProposedPrice = input.ProposedPrice
			}
			inquiry.Status = enums.InquiryStatusNegotiating
			inquiry.Round++
		}
		inquiry.UpdatedAt = s.now()

		saved, err := repo.Save(ctx, inquiry, prevStatus, prevRound)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save inquiry")
		}
		if !saved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry changed by another request")
		}
		if !accepted {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInquiryAccepted,
			AggregateType: enums.AggregateInquiry,
			AggregateID:   inquiry.ID,
			Actor:         outbox.Actor(actorID, ""),
			Data: AcceptedEvent{
				InquiryID:     inquiry.ID,
				GigID:         inquiry.GigID,
				BuyerID:       inquiry.BuyerID,
				SupplierID:    inquiry.SupplierID,
				FinalQuantity: *inquiry.FinalQuantity,
				FinalPrice:    *inquiry.FinalPrice,
				Round:         inquiry.Round,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if accepted {
		s.logg.Info(s.logg.WithField(ctx, "inquiry_id", inquiry.ID.String()), "inquiry accepted")
	}
	return inquiry, nil
}

// Cancel deletes the inquiry. Only the buyer may, and only before any
// counter-offer.
func (s *service) Cancel(ctx context.Context, actorID, inquiryID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inquiry, err := s.load(ctx, repo, inquiryID)
		if err != nil {
			return err
		}
		if err := authz.Require(actorID, authz.Inquiry(inquiry), authz.RelationBuyer); err != nil {
			return err
		}
		if inquiry.Status != enums.InquiryStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending inquiries can be cancelled").
				WithDetails(map[string]string{"status": string(inquiry.Status)})
		}
		deleted, err := repo.DeletePending(ctx, inquiry.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inquiry")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry changed by another request")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actorID, inquiryID uuid.UUID) (*models.Inquiry, error) {
	inquiry, err := s.load(ctx, s.repo, inquiryID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actorID, authz.Inquiry(inquiry), authz.RelationBuyer, authz.RelationSupplier); err != nil {
		return nil, err
	}
	return inquiry, nil
}

// ListForUser returns inquiries the user sent or received, newest first.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Inquiry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inquiries")
	}
	return rows, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Inquiry, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inquiry id is required")
	}
	inquiry, err := repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inquiry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inquiry")
	}
	return inquiry, nil
}

// freezeTerms copies the latest proposal, or the original request when no
// counter-offer was made, into the final fields.
func freezeTerms(inquiry *models.Inquiry) error {
	qty := inquiry.RequestedQuantity
	if inquiry.ProposedQuantity != nil {
		qty = *inquiry.ProposedQuantity
	}
	price := inquiry.RequestedPrice
	if inquiry.ProposedPrice != nil {
		price = inquiry.ProposedPrice
	}
	if price == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot accept an inquiry without a price")
	}
	finalPrice := *price
	inquiry.FinalQuantity = &qty
	inquiry.FinalPrice = &finalPrice
	return nil
}

func validateUpdate(input UpdateInput) error {
	switch input.Status {
	case "", enums.InquiryStatusNegotiating:
		if input.ProposedQuantity == nil && input.ProposedPrice == nil && input.Message == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "a counter-offer needs a quantity, price or message")
		}
	case enums.InquiryStatusAccepted:
		if input.ProposedQuantity != nil || input.ProposedPrice != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "accepting cannot change the terms")
		}
	case enums.InquiryStatusRejected:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "status must be NEGOTIATING, ACCEPTED or REJECTED")
	}
	if input.ProposedQuantity != nil && *input.ProposedQuantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "proposedQuantity must be greater than zero")
	}
	if input.ProposedPrice != nil && !input.ProposedPrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "proposedPrice must be greater than zero")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
