package rentals

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentmoto/rentmoto-backend/pkg/config"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

type stubRepo struct {
	rentals      map[uuid.UUID]*models.Rental
	forceNoMatch bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{rentals: map[uuid.UUID]*models.Rental{}}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, rental *models.Rental) error {
	if rental.ID == uuid.Nil {
		rental.ID = uuid.New()
	}
	clone := *rental
	s.rentals[rental.ID] = &clone
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	rental, ok := s.rentals[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
	}
	clone := *rental
	return &clone, nil
}

func (s *stubRepo) ListByRenter(ctx context.Context, renterID uuid.UUID, params pagination.Params) ([]models.Rental, error) {
	var out []models.Rental
	for _, r := range s.rentals {
		if r.RenterID == renterID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRepo) ListByLessor(ctx context.Context, lessorID uuid.UUID, params pagination.Params) ([]models.Rental, error) {
	var out []models.Rental
	for _, r := range s.rentals {
		if r.LessorID == lessorID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected enums.RentalStatus, updates map[string]any) (bool, error) {
	if s.forceNoMatch {
		return false, nil
	}
	rental, ok := s.rentals[id]
	if !ok || rental.Status != expected {
		return false, nil
	}
	applyUpdates(rental, updates)
	return true, nil
}

func (s *stubRepo) ListDueForSweep(ctx context.Context, now time.Time, confirmationWindow, paymentOffset time.Duration, limit int) ([]models.Rental, error) {
	rules := Rules{ConfirmationWindow: confirmationWindow, PaymentDeadlineOffset: paymentOffset, QRMaxStale: time.Minute}
	var out []models.Rental
	for _, r := range s.rentals {
		if _, due := rules.SweepDue(*r, now); due {
			out = append(out, *r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func applyUpdates(rental *models.Rental, updates map[string]any) {
	for column, value := range updates {
		switch column {
		case "status":
			rental.Status = value.(enums.RentalStatus)
		case "payment_status":
			rental.PaymentStatus = value.(enums.PaymentStatus)
		case "cancelled_by":
			by := value.(enums.CancelledBy)
			rental.CancelledBy = &by
		case "cancelled_at":
			at := value.(time.Time)
			rental.CancelledAt = &at
		case "confirmed_at":
			at := value.(time.Time)
			rental.ConfirmedAt = &at
		case "activated_at":
			at := value.(time.Time)
			rental.ActivatedAt = &at
		case "completed_at":
			at := value.(time.Time)
			rental.CompletedAt = &at
		case "payment_deadline":
			at := value.(time.Time)
			rental.PaymentDeadline = &at
		case "pickup_token_id":
			id := value.(string)
			rental.PickupTokenID = &id
		case "return_token_id":
			id := value.(string)
			rental.ReturnTokenID = &id
		}
	}
}

type stubContracts struct {
	contracts map[uuid.UUID]*models.Contract
}

func (s *stubContracts) FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, ok := s.contracts[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	clone := *contract
	return &clone, nil
}

type stubNotifier struct {
	events []string
}

func (s *stubNotifier) RentalRequested(ctx context.Context, rental models.Rental) error {
	s.events = append(s.events, "requested")
	return nil
}

func (s *stubNotifier) RentalConfirmed(ctx context.Context, rental models.Rental) error {
	s.events = append(s.events, "confirmed")
	return nil
}

func (s *stubNotifier) RentalCancelled(ctx context.Context, rental models.Rental, by enums.CancelledBy) error {
	s.events = append(s.events, "cancelled:"+string(by))
	return nil
}

func (s *stubNotifier) PaymentReceived(ctx context.Context, rental models.Rental) error {
	s.events = append(s.events, "payment")
	return nil
}

type fixture struct {
	service  Service
	repo     *stubRepo
	notifier *stubNotifier
	now      *time.Time
	contract models.Contract
	renterID uuid.UUID
	lessorID uuid.UUID
}

func newFixture(t *testing.T, t0 time.Time) *fixture {
	t.Helper()

	lessorID := uuid.New()
	contract := models.Contract{
		ID:          uuid.New(),
		LessorID:    lessorID,
		BikeModel:   "Honda Wave",
		BikePlate:   "59-A1 123.45",
		PricePerDay: decimal.NewFromInt(100),
		ServiceFee:  decimal.NewFromInt(20),
		Status:      enums.ContractStatusAvailable,
	}

	repo := newStubRepo()
	notifier := &stubNotifier{}
	now := t0

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Contracts: &stubContracts{contracts: map[uuid.UUID]*models.Contract{contract.ID: &contract}},
		Notifier:  notifier,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Rules:     testRules,
		QRConfig: config.QRConfig{
			Secret:     "test-secret",
			MaxStale:   5 * time.Minute,
			TokenTTL:   5 * time.Minute,
			IssuerName: "rentmoto",
		},
		Clock: func() time.Time { return now },
	})
	require.NoError(t, err)

	return &fixture{
		service:  svc,
		repo:     repo,
		notifier: notifier,
		now:      &now,
		contract: contract,
		renterID: uuid.New(),
		lessorID: lessorID,
	}
}

func (f *fixture) createRental(t *testing.T, t0 time.Time) *models.Rental {
	t.Helper()
	rental, err := f.service.Create(context.Background(), CreateRentalInput{
		ContractID: f.contract.ID,
		RenterID:   f.renterID,
		StartDate:  t0.Add(10 * 24 * time.Hour),
		EndDate:    t0.Add(13 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return rental
}

func TestServiceCreate(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)

	rental := f.createRental(t, t0)

	assert.Equal(t, enums.RentalStatusPending, rental.Status)
	assert.Equal(t, enums.PaymentStatusPending, rental.PaymentStatus)
	assert.Equal(t, f.lessorID, rental.LessorID)
	// 3 days x 100 + 20 fee
	assert.True(t, rental.TotalPrice.Equal(decimal.NewFromInt(320)))
	assert.Equal(t, []string{"requested"}, f.notifier.events)
}

func TestServiceCreateValidation(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)

	_, err := f.service.Create(context.Background(), CreateRentalInput{
		ContractID: f.contract.ID,
		RenterID:   f.renterID,
		StartDate:  t0.Add(48 * time.Hour),
		EndDate:    t0.Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.service.Create(context.Background(), CreateRentalInput{
		ContractID: f.contract.ID,
		RenterID:   f.lessorID,
		StartDate:  t0.Add(24 * time.Hour),
		EndDate:    t0.Add(48 * time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, "cannot rent your own bike", pkgerrors.As(err).Message())
}

func TestServiceGetSweepsPendingPastDeadline(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	rental := f.createRental(t, t0)

	*f.now = t0.Add(25 * time.Hour)
	got, err := f.service.Get(context.Background(), rental.ID, f.renterID)
	require.NoError(t, err)

	assert.Equal(t, enums.RentalStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, enums.CancelledBySystem, *got.CancelledBy)

	// persisted, not just decorated on the way out
	stored, err := f.repo.FindByID(context.Background(), rental.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusCancelled, stored.Status)
}

func TestServiceConfirm(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	rental := f.createRental(t, t0)

	*f.now = t0.Add(2 * time.Hour)

	_, err := f.service.Confirm(context.Background(), ConfirmRentalInput{
		RentalID: rental.ID,
		ActorID:  f.renterID,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	got, err := f.service.Confirm(context.Background(), ConfirmRentalInput{
		RentalID: rental.ID,
		ActorID:  f.lessorID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusConfirmed, got.Status)
	assert.NotNil(t, got.ConfirmedAt)
	assert.Contains(t, f.notifier.events, "confirmed")
}

func TestServiceConfirmAfterDeadline(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	rental := f.createRental(t, t0)

	*f.now = t0.Add(25 * time.Hour)
	_, err := f.service.Confirm(context.Background(), ConfirmRentalInput{
		RentalID: rental.ID,
		ActorID:  f.lessorID,
	})
	require.Error(t, err)
	assert.Equal(t, "rental already cancelled", pkgerrors.As(err).Message())
}

func TestServiceConcurrentTransitionConflict(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	rental := f.createRental(t, t0)

	*f.now = t0.Add(2 * time.Hour)
	f.repo.forceNoMatch = true

	_, err := f.service.Confirm(context.Background(), ConfirmRentalInput{
		RentalID: rental.ID,
		ActorID:  f.lessorID,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestServicePaymentFlow(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	rental := f.createRental(t, t0)

	*f.now = t0.Add(2 * time.Hour)
	_, err := f.service.Confirm(context.Background(), ConfirmRentalInput{RentalID: rental.ID, ActorID: f.lessorID})
	require.NoError(t, err)

	_, err = f.service.ApplyPaymentResult(context.Background(), rental.ID, decimal.NewFromInt(300))
	require.Error(t, err)
	assert.Equal(t, "payment amount does not match total price", pkgerrors.As(err).Message())

	got, err := f.service.ApplyPaymentResult(context.Background(), rental.ID, decimal.NewFromInt(320))
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)
	assert.Contains(t, f.notifier.events, "payment")
}

func TestServiceQRRoundTrip(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	rental := f.createRental(t, t0)

	*f.now = t0.Add(2 * time.Hour)
	_, err := f.service.Confirm(context.Background(), ConfirmRentalInput{RentalID: rental.ID, ActorID: f.lessorID})
	require.NoError(t, err)
	_, err = f.service.ApplyPaymentResult(context.Background(), rental.ID, decimal.NewFromInt(320))
	require.NoError(t, err)

	// too early: rental period has not started
	issued, err := f.service.IssueQR(context.Background(), IssueQRInput{
		RentalID: rental.ID,
		ActorID:  f.renterID,
		QRType:   enums.QRTypePickup,
	})
	require.NoError(t, err)
	_, err = f.service.RedeemQR(context.Background(), RedeemQRInput{
		RentalID: rental.ID,
		ActorID:  f.lessorID,
		Token:    issued.Token,
	})
	require.Error(t, err)
	assert.Equal(t, "rental period has not started", pkgerrors.As(err).Message())

	// inside the window
	*f.now = t0.Add(10*24*time.Hour + time.Hour)
	issued, err = f.service.IssueQR(context.Background(), IssueQRInput{
		RentalID: rental.ID,
		ActorID:  f.renterID,
		QRType:   enums.QRTypePickup,
	})
	require.NoError(t, err)

	got, err := f.service.RedeemQR(context.Background(), RedeemQRInput{
		RentalID: rental.ID,
		ActorID:  f.lessorID,
		Token:    issued.Token,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusActive, got.Status)
	assert.NotNil(t, got.PickupTokenID)

	// replaying the consumed token cannot drive a second transition
	_, err = f.service.RedeemQR(context.Background(), RedeemQRInput{
		RentalID: rental.ID,
		ActorID:  f.lessorID,
		Token:    issued.Token,
	})
	require.Error(t, err)

	// return while active completes the rental
	issued, err = f.service.IssueQR(context.Background(), IssueQRInput{
		RentalID: rental.ID,
		ActorID:  f.renterID,
		QRType:   enums.QRTypeReturn,
	})
	require.NoError(t, err)

	got, err = f.service.RedeemQR(context.Background(), RedeemQRInput{
		RentalID: rental.ID,
		ActorID:  f.lessorID,
		Token:    issued.Token,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusCompleted, got.Status)
	assert.NotNil(t, got.ReturnTokenID)
}

func TestServiceReturnWhileConfirmed(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	rental := f.createRental(t, t0)

	*f.now = t0.Add(2 * time.Hour)
	_, err := f.service.Confirm(context.Background(), ConfirmRentalInput{RentalID: rental.ID, ActorID: f.lessorID})
	require.NoError(t, err)
	_, err = f.service.ApplyPaymentResult(context.Background(), rental.ID, decimal.NewFromInt(320))
	require.NoError(t, err)

	// mint a return token directly; issuance would refuse this state
	*f.now = t0.Add(10*24*time.Hour + time.Hour)
	f.repo.rentals[rental.ID].Status = enums.RentalStatusActive
	issued, err := f.service.IssueQR(context.Background(), IssueQRInput{
		RentalID: rental.ID,
		ActorID:  f.renterID,
		QRType:   enums.QRTypeReturn,
	})
	require.NoError(t, err)
	f.repo.rentals[rental.ID].Status = enums.RentalStatusConfirmed

	_, err = f.service.RedeemQR(context.Background(), RedeemQRInput{
		RentalID: rental.ID,
		ActorID:  f.lessorID,
		Token:    issued.Token,
	})
	require.Error(t, err)
	assert.Equal(t, "invalid state for return", pkgerrors.As(err).Message())
}

func TestServiceSweepBatch(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, t0)
	first := f.createRental(t, t0)
	second := f.createRental(t, t0)

	*f.now = t0.Add(2 * time.Hour)
	_, err := f.service.Confirm(context.Background(), ConfirmRentalInput{RentalID: second.ID, ActorID: f.lessorID})
	require.NoError(t, err)

	*f.now = t0.Add(9 * 24 * time.Hour)
	swept, err := f.service.SweepBatch(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, 1, swept[SweepReasonConfirmationExpired])
	assert.Equal(t, 1, swept[SweepReasonPaymentExpired])

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		stored, err := f.repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, enums.RentalStatusCancelled, stored.Status)
		require.NotNil(t, stored.CancelledBy)
		assert.Equal(t, enums.CancelledBySystem, *stored.CancelledBy)
	}
}
