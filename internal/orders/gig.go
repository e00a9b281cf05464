package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/internal/authz"
	"github.com/tradehub/tradehub-backend/internal/payments"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/metrics"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
)

// GigService runs gig orders from an accepted inquiry through delivery.
type GigService interface {
	CreatePaymentIntent(ctx context.Context, buyerID uuid.UUID, input GigIntentInput) (*IntentResult, error)
	Create(ctx context.Context, buyerID uuid.UUID, input CreateGigOrderInput) (*models.GigOrder, error)
	Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.GigOrder, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.GigOrder, error)
	Cancel(ctx context.Context, actorID, orderID uuid.UUID) (*GigCancelResult, error)
	UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, to enums.OrderStatus) (*models.GigOrder, error)
	AddProgressUpdate(ctx context.Context, actorID, orderID uuid.UUID, input ProgressUpdateInput) (*models.GigOrderUpdate, error)
	ListProgressUpdates(ctx context.Context, actorID, orderID uuid.UUID) ([]models.GigOrderUpdate, error)
}

type gigService struct {
	lifecycle
}

func NewGigService(repo Repository, tx db.TxRunner, emitter outbox.Emitter, gate PaymentGate, logg *logger.Logger, m *metrics.CommerceMetrics) (GigService, error) {
	l, err := newLifecycle(repo, tx, emitter, gate, logg, m)
	if err != nil {
		return nil, err
	}
	return &gigService{lifecycle: l}, nil
}

// CreatePaymentIntent sizes the intent from the accepted inquiry and tags it
// with the gig, buyer and inquiry it pays for.
func (s *gigService) CreatePaymentIntent(ctx context.Context, buyerID uuid.UUID, input GigIntentInput) (*IntentResult, error) {
	if err := requireActor(buyerID); err != nil {
		return nil, err
	}
	if input.GigID == uuid.Nil || input.InquiryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gigId and inquiryId are required")
	}
	gig, err := s.repo.FindGig(ctx, input.GigID)
	if err != nil {
		return nil, notFound(err, "gig")
	}
	if gig.SellerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot order their own gig")
	}
	inquiry, err := s.acceptedInquiry(ctx, buyerID, gig, input.InquiryID)
	if err != nil {
		return nil, err
	}

	amount := inquiryTotal(inquiry)
	metadata := gigIntentMetadata(gig.ID, buyerID, inquiry.ID)

	intent, err := s.payments.CreateIntent(ctx, amount, "Gig order: "+gig.Title, nil, metadata)
	if err != nil {
		return nil, err
	}
	return &IntentResult{PaymentIntentID: intent.ID, ClientSecret: intent.ClientSecret, Amount: amount}, nil
}

func (s *gigService) Create(ctx context.Context, buyerID uuid.UUID, input CreateGigOrderInput) (*models.GigOrder, error) {
	if err := requireActor(buyerID); err != nil {
		return nil, err
	}
	if err := validateGigOrderInput(input); err != nil {
		return nil, err
	}
	gig, err := s.repo.FindGig(ctx, input.GigID)
	if err != nil {
		return nil, notFound(err, "gig")
	}
	if gig.SellerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot order their own gig")
	}
	inquiry, err := s.acceptedInquiry(ctx, buyerID, gig, input.InquiryID)
	if err != nil {
		return nil, err
	}
	total := inquiryTotal(inquiry)

	intent, err := s.payments.VerifySucceeded(ctx, input.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if err := checkIntent(intent, total, gigIntentMetadata(gig.ID, buyerID, inquiry.ID)); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"payment_intent_id": intent.ID,
			"intent_amount":     intent.AmountMinor,
			"order_total":       total.String(),
		}), "payment intent does not cover this gig order")
		return nil, err
	}

	order := &models.GigOrder{
		GigID:           gig.ID,
		InquiryID:       inquiry.ID,
		BuyerID:         buyerID,
		SellerID:        gig.SellerID,
		Requirement:     strings.TrimSpace(input.Requirement),
		Quantity:        *inquiry.FinalQuantity,
		UnitPrice:       *inquiry.FinalPrice,
		TotalPrice:      total,
		Status:          enums.OrderStatusPending,
		PaymentIntentID: input.PaymentIntentID,
		ShippingAddress: input.ShippingAddress,
		DeliveryMethod:  input.DeliveryMethod,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateGigOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an order already exists for this inquiry or payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gig order")
		}
		sellerID := order.SellerID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateGigOrder,
			AggregateID:   order.ID,
			Actor:         outbox.Actor(buyerID, "buyer"),
			Data: OrderCreatedEvent{
				OrderID:         order.ID,
				Kind:            enums.OrderKindGig,
				BuyerID:         buyerID,
				SellerID:        &sellerID,
				TotalPrice:      order.TotalPrice,
				PaymentIntentID: order.PaymentIntentID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.OrderCreated(string(enums.OrderKindGig))
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "gig order created")
	return order, nil
}

func (s *gigService) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.GigOrder, error) {
	order, err := s.repo.FindGigOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "gig order")
	}
	if err := authz.Require(actorID, authz.GigOrder(order), authz.RelationBuyer, authz.RelationSeller); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *gigService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.GigOrder, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListGigOrdersForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list gig orders")
	}
	return rows, nil
}

func (s *gigService) Cancel(ctx context.Context, actorID, orderID uuid.UUID) (*GigCancelResult, error) {
	var order *models.GigOrder
	var change statusChange
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.WithTx(tx).FindGigOrder(ctx, orderID)
		if err != nil {
			return notFound(err, "gig order")
		}
		if err := authz.Require(actorID, authz.GigOrder(order), authz.RelationBuyer); err != nil {
			return err
		}
		change, err = s.apply(ctx, tx, enums.OrderKindGig, order.ID, order.Status, ActionCancel, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recorded(change)
	order.Status = change.to
	now := s.now()
	order.CancelledAt = &now

	refund := s.refundAfterCancel(ctx, enums.OrderKindGig, order.ID, order.PaymentIntentID)
	return &GigCancelResult{Order: order, Refund: refund}, nil
}

// UpdateStatus lets the seller move the order one step along the gig path.
func (s *gigService) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, to enums.OrderStatus) (*models.GigOrder, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	var order *models.GigOrder
	var change statusChange
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.WithTx(tx).FindGigOrder(ctx, orderID)
		if err != nil {
			return notFound(err, "gig order")
		}
		if err := authz.Require(actorID, authz.GigOrder(order), authz.RelationSeller); err != nil {
			return err
		}
		action, err := ManualAction(enums.OrderKindGig, order.Status, to)
		if err != nil {
			return err
		}
		change, err = s.apply(ctx, tx, enums.OrderKindGig, order.ID, order.Status, action, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recorded(change)
	order.Status = change.to
	return order, nil
}

func (s *gigService) AddProgressUpdate(ctx context.Context, actorID, orderID uuid.UUID, input ProgressUpdateInput) (*models.GigOrderUpdate, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and content are required")
	}
	order, err := s.repo.FindGigOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "gig order")
	}
	if err := authz.Require(actorID, authz.GigOrder(order), authz.RelationSeller); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusInProgress {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "progress updates require an order in progress").
			WithDetails(map[string]string{"status": string(order.Status)})
	}
	update := &models.GigOrderUpdate{
		OrderID:              order.ID,
		SellerID:             actorID,
		Title:                title,
		Content:              content,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
	}
	if err := s.repo.CreateGigOrderUpdate(ctx, update); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create progress update")
	}
	return update, nil
}

func (s *gigService) ListProgressUpdates(ctx context.Context, actorID, orderID uuid.UUID) ([]models.GigOrderUpdate, error) {
	order, err := s.Get(ctx, actorID, orderID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListGigOrderUpdates(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list progress updates")
	}
	return rows, nil
}

// acceptedInquiry returns the buyer's accepted inquiry for gig, the only
// source of gig order pricing.
func (s *gigService) acceptedInquiry(ctx context.Context, buyerID uuid.UUID, gig *models.Gig, inquiryID uuid.UUID) (*models.Inquiry, error) {
	inquiry, err := s.repo.FindInquiry(ctx, inquiryID)
	if err != nil {
		return nil, notFound(err, "inquiry")
	}
	if err := authz.Require(buyerID, authz.Inquiry(inquiry), authz.RelationBuyer); err != nil {
		return nil, err
	}
	if inquiry.GigID != gig.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inquiry does not belong to this gig")
	}
	if inquiry.Status != enums.InquiryStatusAccepted || inquiry.FinalQuantity == nil || inquiry.FinalPrice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inquiry has not been accepted").
			WithDetails(map[string]string{"status": string(inquiry.Status)})
	}
	return inquiry, nil
}

func gigIntentMetadata(gigID, buyerID, inquiryID uuid.UUID) map[string]string {
	return map[string]string{
		"gigId":     gigID.String(),
		"buyerId":   buyerID.String(),
		"inquiryId": inquiryID.String(),
	}
}

// checkIntent requires the verified intent to be sized to the order total.
// Metadata keys the intent carries must name this order's parties.
func checkIntent(intent *payments.Intent, total decimal.Decimal, want map[string]string) error {
	if intent.AmountMinor != payments.ToMinorUnits(total) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount does not match order total").
			WithDetails(map[string]any{"paymentAmountMinor": intent.AmountMinor, "totalPrice": total.StringFixed(2)})
	}
	for key, value := range want {
		if got, ok := intent.Metadata[key]; ok && got != value {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment intent belongs to a different order").
				WithDetails(map[string]any{"field": key})
		}
	}
	return nil
}

func inquiryTotal(inquiry *models.Inquiry) decimal.Decimal {
	return inquiry.FinalPrice.Mul(decimal.NewFromInt(int64(*inquiry.FinalQuantity))).Round(2)
}

func validateGigOrderInput(input CreateGigOrderInput) error {
	missing := make([]string, 0, 4)
	if input.GigID == uuid.Nil {
		missing = append(missing, "gigId")
	}
	if input.InquiryID == uuid.Nil {
		missing = append(missing, "inquiryId")
	}
	if strings.TrimSpace(input.PaymentIntentID) == "" {
		missing = append(missing, "paymentIntentId")
	}
	if strings.TrimSpace(input.Requirement) == "" {
		missing = append(missing, "requirement")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string][]string{"missing": missing})
	}
	return nil
}
