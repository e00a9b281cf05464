package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
)

type gigSetup struct {
	buyer   uuid.UUID
	seller  uuid.UUID
	gig     models.Gig
	inquiry models.Inquiry
}

func seedAcceptedInquiry(t *testing.T, f *fixture) gigSetup {
	t.Helper()
	buyer, seller := uuid.New(), uuid.New()
	gig := models.Gig{SellerID: seller, Title: "bulk rice", BulkPrice: decimal.RequireFromString("4.75")}
	require.NoError(t, f.conn.Create(&gig).Error)

	qty := 80
	price := decimal.RequireFromString("5.50")
	inquiry := models.Inquiry{
		GigID:             gig.ID,
		BuyerID:           buyer,
		SupplierID:        seller,
		RequestedQuantity: 100,
		ProposedQuantity:  &qty,
		ProposedPrice:     &price,
		FinalQuantity:     &qty,
		FinalPrice:        &price,
		Status:            enums.InquiryStatusAccepted,
		Round:             2,
	}
	require.NoError(t, f.conn.Create(&inquiry).Error)
	return gigSetup{buyer: buyer, seller: seller, gig: gig, inquiry: inquiry}
}

func (s gigSetup) input(intentID string) CreateGigOrderInput {
	return CreateGigOrderInput{
		GigID:           s.gig.ID,
		InquiryID:       s.inquiry.ID,
		PaymentIntentID: intentID,
		Requirement:     "deliver to dock 4",
	}
}

func TestGigOrderPricedFromAcceptedInquiry(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)
	ctx := context.Background()

	intent, err := f.gigs.CreatePaymentIntent(ctx, s.buyer, GigIntentInput{GigID: s.gig.ID, InquiryID: s.inquiry.ID})
	require.NoError(t, err)
	assert.Equal(t, "440.00", intent.Amount.StringFixed(2))
	f.gate.settle(intent.PaymentIntentID)

	order, err := f.gigs.Create(ctx, s.buyer, s.input(intent.PaymentIntentID))
	require.NoError(t, err)
	assert.Equal(t, "440.00", order.TotalPrice.StringFixed(2))
	assert.Equal(t, 80, order.Quantity)
	assert.Equal(t, s.seller, order.SellerID)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.EqualValues(t, 1, f.eventCount(t, enums.EventOrderCreated))
}

func TestGigIntentRequiresAcceptedInquiry(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)
	ctx := context.Background()

	_, err := f.gigs.CreatePaymentIntent(ctx, s.buyer, GigIntentInput{GigID: s.gig.ID})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Empty(t, f.gate.created)

	require.NoError(t, f.conn.Model(&models.Inquiry{}).Where("id = ?", s.inquiry.ID).
		Update("status", enums.InquiryStatusNegotiating).Error)
	_, err = f.gigs.CreatePaymentIntent(ctx, s.buyer, GigIntentInput{GigID: s.gig.ID, InquiryID: s.inquiry.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, f.gate.created)
}

func TestGigIntentCarriesOrderMetadata(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)

	intent, err := f.gigs.CreatePaymentIntent(context.Background(), s.buyer, GigIntentInput{GigID: s.gig.ID, InquiryID: s.inquiry.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ClientSecret)

	stored := f.gate.intents[intent.PaymentIntentID]
	assert.Equal(t, s.gig.ID.String(), stored.Metadata["gigId"])
	assert.Equal(t, s.buyer.String(), stored.Metadata["buyerId"])
	assert.Equal(t, s.inquiry.ID.String(), stored.Metadata["inquiryId"])
}

func TestGigOrderRejectsUnderpaidIntent(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)
	ctx := context.Background()

	for _, amount := range []string{"1.00", "4.75", "439.99", "440.01"} {
		_, err := f.gigs.Create(ctx, s.buyer, s.input(f.gate.paid(decimal.RequireFromString(amount))))
		requireCode(t, err, pkgerrors.CodeValidation)
	}

	var n int64
	require.NoError(t, f.conn.Model(&models.GigOrder{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, f.eventCount(t, enums.EventOrderCreated))
}

func TestGigOrderRejectsIntentForAnotherInquiry(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)

	intentID := f.gate.paidWith(decimal.NewFromInt(440), map[string]string{
		"gigId":     s.gig.ID.String(),
		"buyerId":   s.buyer.String(),
		"inquiryId": uuid.NewString(),
	})
	_, err := f.gigs.Create(context.Background(), s.buyer, s.input(intentID))
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestGigOrderRequiresVerifiedPayment(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)
	ctx := context.Background()

	intent, err := f.gigs.CreatePaymentIntent(ctx, s.buyer, GigIntentInput{GigID: s.gig.ID, InquiryID: s.inquiry.ID})
	require.NoError(t, err)

	_, err = f.gigs.Create(ctx, s.buyer, s.input(intent.PaymentIntentID))
	requireCode(t, err, pkgerrors.CodePaymentIncomplete)

	var n int64
	require.NoError(t, f.conn.Model(&models.GigOrder{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, f.eventCount(t, enums.EventOrderCreated))
}

func TestGigOrderRejectsUnacceptedInquiry(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)
	require.NoError(t, f.conn.Model(&models.Inquiry{}).Where("id = ?", s.inquiry.ID).
		Update("status", enums.InquiryStatusNegotiating).Error)

	_, err := f.gigs.Create(context.Background(), s.buyer, s.input(f.gate.paid(decimal.NewFromInt(440))))
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestGigOrderOnlyForInquiryBuyer(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)

	_, err := f.gigs.Create(context.Background(), uuid.New(), s.input(f.gate.paid(decimal.NewFromInt(440))))
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestGigOrderOnePerInquiry(t *testing.T) {
	f := newFixture(t)
	s := seedAcceptedInquiry(t, f)
	ctx := context.Background()
	total := decimal.NewFromInt(440)

	_, err := f.gigs.Create(ctx, s.buyer, s.input(f.gate.paid(total)))
	require.NoError(t, err)
	_, err = f.gigs.Create(ctx, s.buyer, s.input(f.gate.paid(total)))
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestGigOrderValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.gigs.Create(context.Background(), uuid.New(), CreateGigOrderInput{})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.gigs.Create(context.Background(), uuid.Nil, CreateGigOrderInput{})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func createGigOrder(t *testing.T, f *fixture) (gigSetup, *models.GigOrder) {
	t.Helper()
	s := seedAcceptedInquiry(t, f)
	order, err := f.gigs.Create(context.Background(), s.buyer, s.input(f.gate.paid(decimal.NewFromInt(440))))
	require.NoError(t, err)
	return s, order
}

func TestGigStatusFollowsSequence(t *testing.T) {
	f := newFixture(t)
	s, order := createGigOrder(t, f)
	ctx := context.Background()

	_, err := f.gigs.UpdateStatus(ctx, s.seller, order.ID, enums.OrderStatusDelivered)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.gigs.UpdateStatus(ctx, s.buyer, order.ID, enums.OrderStatusInProgress)
	requireCode(t, err, pkgerrors.CodeForbidden)

	for _, next := range []enums.OrderStatus{enums.OrderStatusInProgress, enums.OrderStatusDelivered, enums.OrderStatusCompleted} {
		updated, err := f.gigs.UpdateStatus(ctx, s.seller, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err = f.gigs.UpdateStatus(ctx, s.seller, order.ID, enums.OrderStatusInProgress)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.EqualValues(t, 3, f.eventCount(t, enums.EventOrderStatusChanged))

	stored, err := f.gigs.Get(ctx, s.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
}

func TestGigStatusCannotBeSetToCancelled(t *testing.T) {
	f := newFixture(t)
	s, order := createGigOrder(t, f)

	_, err := f.gigs.UpdateStatus(context.Background(), s.seller, order.ID, enums.OrderStatusCancelled)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestGigCancelRefundsPayment(t *testing.T) {
	f := newFixture(t)
	s, order := createGigOrder(t, f)

	result, err := f.gigs.Cancel(context.Background(), s.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, result.Order.Status)
	assert.Equal(t, RefundSucceeded, result.Refund)
	assert.Equal(t, []string{order.PaymentIntentID}, f.gate.refunded)
	assert.EqualValues(t, 1, f.eventCount(t, enums.EventOrderCancelled))
}

func TestGigCancelSurvivesRefundFailure(t *testing.T) {
	f := newFixture(t)
	s, order := createGigOrder(t, f)
	f.gate.refundErr = errProcessorDown
	ctx := context.Background()

	result, err := f.gigs.Cancel(ctx, s.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, RefundFailed, result.Refund)

	stored, err := f.gigs.Get(ctx, s.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
	assert.EqualValues(t, 1, f.eventCount(t, enums.EventOrderRefundFailed))
}

func TestGigCancelRules(t *testing.T) {
	f := newFixture(t)
	s, order := createGigOrder(t, f)
	ctx := context.Background()

	_, err := f.gigs.Cancel(ctx, s.seller, order.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.gigs.UpdateStatus(ctx, s.seller, order.ID, enums.OrderStatusInProgress)
	require.NoError(t, err)
	_, err = f.gigs.Cancel(ctx, s.buyer, order.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, f.gate.refunded)
}

func TestGigProgressUpdates(t *testing.T) {
	f := newFixture(t)
	s, order := createGigOrder(t, f)
	ctx := context.Background()
	input := ProgressUpdateInput{Title: "milled", Content: "first 40 sacks ready"}

	_, err := f.gigs.AddProgressUpdate(ctx, s.seller, order.ID, input)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.gigs.UpdateStatus(ctx, s.seller, order.ID, enums.OrderStatusInProgress)
	require.NoError(t, err)
	_, err = f.gigs.AddProgressUpdate(ctx, s.buyer, order.ID, input)
	requireCode(t, err, pkgerrors.CodeForbidden)

	update, err := f.gigs.AddProgressUpdate(ctx, s.seller, order.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "milled", update.Title)

	updates, err := f.gigs.ListProgressUpdates(ctx, s.buyer, order.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)

	_, err = f.gigs.ListProgressUpdates(ctx, uuid.New(), order.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestGigListForUser(t *testing.T) {
	f := newFixture(t)
	s, _ := createGigOrder(t, f)
	ctx := context.Background()

	buyerOrders, err := f.gigs.ListForUser(ctx, s.buyer)
	require.NoError(t, err)
	assert.Len(t, buyerOrders, 1)
	sellerOrders, err := f.gigs.ListForUser(ctx, s.seller)
	require.NoError(t, err)
	assert.Len(t, sellerOrders, 1)
	other, err := f.gigs.ListForUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}
