package rentals

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentmoto/rentmoto-backend/internal/qr"
	"github.com/rentmoto/rentmoto-backend/pkg/config"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

// Clock supplies the current time. Tests swap it for a fixed instant.
type Clock func() time.Time

// ContractSource is the slice of the contract repository the rental service
// needs at booking time.
type ContractSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

// Notifier delivers best-effort notifications about lifecycle events. Errors
// are logged by the caller and never fail the transition.
type Notifier interface {
	RentalRequested(ctx context.Context, rental models.Rental) error
	RentalConfirmed(ctx context.Context, rental models.Rental) error
	RentalCancelled(ctx context.Context, rental models.Rental, by enums.CancelledBy) error
	PaymentReceived(ctx context.Context, rental models.Rental) error
}

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the single authority for rental state. Every read sweeps
// elapsed deadlines before acting, and every transition is guarded by the
// lifecycle rules and applied with a compare-and-swap.
type Service interface {
	Create(ctx context.Context, input CreateRentalInput) (*models.Rental, error)
	Get(ctx context.Context, rentalID, actorID uuid.UUID) (*models.Rental, error)
	ListForUser(ctx context.Context, userID uuid.UUID, role enums.UserRole, params pagination.Params) ([]models.Rental, error)
	Confirm(ctx context.Context, input ConfirmRentalInput) (*models.Rental, error)
	Cancel(ctx context.Context, input CancelRentalInput) (*models.Rental, error)
	IssueQR(ctx context.Context, input IssueQRInput) (*IssuedQR, error)
	RedeemQR(ctx context.Context, input RedeemQRInput) (*models.Rental, error)
	ApplyPaymentResult(ctx context.Context, rentalID uuid.UUID, amount decimal.Decimal) (*models.Rental, error)
	// SweepBatch cancels rentals whose deadlines elapsed while nobody was
	// reading them. Used by the background worker; reads do the same lazily.
	SweepBatch(ctx context.Context, limit int) (map[SweepReason]int, error)
	TimeStatusFor(rental models.Rental) TimeStatus
}

type ServiceParams struct {
	Repo      Repository
	Contracts ContractSource
	Notifier  Notifier
	Logger    *logger.Logger
	Rules     Rules
	QRConfig  config.QRConfig
	Clock     Clock
}

type service struct {
	repo      Repository
	contracts ContractSource
	notifier  Notifier
	logg      *logger.Logger
	rules     Rules
	qrCfg     config.QRConfig
	now       Clock
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("rentals repository is required")
	}
	if params.Contracts == nil {
		return nil, fmt.Errorf("contract source is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.Rules.ConfirmationWindow <= 0 || params.Rules.PaymentDeadlineOffset <= 0 || params.Rules.QRMaxStale <= 0 {
		return nil, fmt.Errorf("lifecycle rules are required")
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		repo:      params.Repo,
		contracts: params.Contracts,
		notifier:  params.Notifier,
		logg:      params.Logger,
		rules:     params.Rules,
		qrCfg:     params.QRConfig,
		now:       params.Clock,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateRentalInput) (*models.Rental, error) {
	now := s.now()
	if !input.EndDate.After(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.StartDate.Before(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must be in the future")
	}

	contract, err := s.contracts.FindByID(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != enums.ContractStatusAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contract is not available")
	}
	if contract.LessorID == input.RenterID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot rent your own bike")
	}

	rental := &models.Rental{
		ContractID:    contract.ID,
		RenterID:      input.RenterID,
		LessorID:      contract.LessorID,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Status:        enums.RentalStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		TotalPrice:    totalPrice(*contract, input.StartDate, input.EndDate),
	}
	if err := s.repo.Create(ctx, rental); err != nil {
		return nil, err
	}

	s.notify(ctx, "rental requested", func() error {
		return s.notifier.RentalRequested(ctx, *rental)
	})
	return rental, nil
}

// totalPrice is fixed at booking: price per day times billable days plus the
// contract service fee. Partial days bill as a full day.
func totalPrice(contract models.Contract, start, end time.Time) decimal.Decimal {
	days := int64(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return contract.PricePerDay.Mul(decimal.NewFromInt(days)).Add(contract.ServiceFee)
}

func (s *service) Get(ctx context.Context, rentalID, actorID uuid.UUID) (*models.Rental, error) {
	rental, err := s.repo.FindByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.RenterID != actorID && rental.LessorID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this rental")
	}
	return s.sweep(ctx, rental, s.now()), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, role enums.UserRole, params pagination.Params) ([]models.Rental, error) {
	var (
		rentals []models.Rental
		err     error
	)
	switch role {
	case enums.UserRoleLessor:
		rentals, err = s.repo.ListByLessor(ctx, userID, params)
	default:
		rentals, err = s.repo.ListByRenter(ctx, userID, params)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range rentals {
		rentals[i] = *s.sweep(ctx, &rentals[i], now)
	}
	return rentals, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmRentalInput) (*models.Rental, error) {
	rental, err := s.loadForParty(ctx, input.RentalID, input.ActorID)
	if err != nil {
		return nil, err
	}
	if rental.LessorID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the lessor can confirm a rental")
	}

	now := s.now()
	rental = s.sweep(ctx, rental, now)
	if guardErr := s.rules.CanConfirm(*rental, now); guardErr != nil {
		return nil, guardErr
	}

	if input.PaymentDeadline != nil {
		if !input.PaymentDeadline.After(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment deadline must be in the future")
		}
		if input.PaymentDeadline.After(rental.StartDate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment deadline must not be after the start date")
		}
	}

	updates := map[string]any{
		"status":       enums.RentalStatusConfirmed,
		"confirmed_at": now,
	}
	if input.PaymentDeadline != nil {
		updates["payment_deadline"] = *input.PaymentDeadline
	}

	rental, err = s.applyTransition(ctx, rental, enums.RentalStatusPending, updates)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "rental confirmed", func() error {
		return s.notifier.RentalConfirmed(ctx, *rental)
	})
	return rental, nil
}

func (s *service) Cancel(ctx context.Context, input CancelRentalInput) (*models.Rental, error) {
	rental, err := s.loadForParty(ctx, input.RentalID, input.ActorID)
	if err != nil {
		return nil, err
	}

	var by enums.CancelledBy
	switch input.ActorRole {
	case enums.UserRoleRenter:
		if rental.RenterID != input.ActorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this rental")
		}
		by = enums.CancelledByRenter
	case enums.UserRoleLessor:
		if rental.LessorID != input.ActorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this rental")
		}
		by = enums.CancelledByLessor
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown actor role")
	}

	now := s.now()
	rental = s.sweep(ctx, rental, now)
	if guardErr := s.rules.CanCancel(*rental, by); guardErr != nil {
		return nil, guardErr
	}

	rental, err = s.applyTransition(ctx, rental, rental.Status, map[string]any{
		"status":       enums.RentalStatusCancelled,
		"cancelled_by": by,
		"cancelled_at": now,
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "rental cancelled", func() error {
		return s.notifier.RentalCancelled(ctx, *rental, by)
	})
	return rental, nil
}

func (s *service) IssueQR(ctx context.Context, input IssueQRInput) (*IssuedQR, error) {
	rental, err := s.loadForParty(ctx, input.RentalID, input.ActorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rental = s.sweep(ctx, rental, now)
	if guardErr := s.rules.CanIssueQR(*rental, input.QRType); guardErr != nil {
		return nil, guardErr
	}

	signed, token, err := qr.Issue(s.qrCfg, now, rental.ID, input.QRType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issuing qr token")
	}

	return &IssuedQR{
		Token:    signed,
		Type:     token.Type,
		IssuedAt: token.IssuedAt,
		StaleAt:  token.IssuedAt.Add(s.rules.QRMaxStale),
	}, nil
}

func (s *service) RedeemQR(ctx context.Context, input RedeemQRInput) (*models.Rental, error) {
	token, err := qr.Parse(s.qrCfg, input.Token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid QR token")
	}
	if token.RentalID != input.RentalID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "QR does not belong to this rental")
	}

	rental, err := s.loadForParty(ctx, input.RentalID, input.ActorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rental = s.sweep(ctx, rental, now)

	switch token.Type {
	case enums.QRTypePickup:
		if guardErr := s.rules.CanRedeemPickup(*rental, *token, now); guardErr != nil {
			return nil, guardErr
		}
		return s.applyTransition(ctx, rental, enums.RentalStatusConfirmed, map[string]any{
			"status":          enums.RentalStatusActive,
			"activated_at":    now,
			"pickup_token_id": token.ID,
		})
	case enums.QRTypeReturn:
		if guardErr := s.rules.CanRedeemReturn(*rental, *token, now); guardErr != nil {
			return nil, guardErr
		}
		return s.applyTransition(ctx, rental, enums.RentalStatusActive, map[string]any{
			"status":          enums.RentalStatusCompleted,
			"completed_at":    now,
			"return_token_id": token.ID,
		})
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown qr type")
	}
}

func (s *service) ApplyPaymentResult(ctx context.Context, rentalID uuid.UUID, amount decimal.Decimal) (*models.Rental, error) {
	rental, err := s.repo.FindByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rental = s.sweep(ctx, rental, now)
	if guardErr := s.rules.CanApplyPayment(*rental, amount, now); guardErr != nil {
		return nil, guardErr
	}

	rental, err = s.applyTransition(ctx, rental, enums.RentalStatusConfirmed, map[string]any{
		"payment_status": enums.PaymentStatusPaid,
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "payment received", func() error {
		return s.notifier.PaymentReceived(ctx, *rental)
	})
	return rental, nil
}

func (s *service) SweepBatch(ctx context.Context, limit int) (map[SweepReason]int, error) {
	now := s.now()
	due, err := s.repo.ListDueForSweep(ctx, now, s.rules.ConfirmationWindow, s.rules.PaymentDeadlineOffset, limit)
	if err != nil {
		return nil, err
	}

	swept := map[SweepReason]int{}
	for i := range due {
		reason, ok := s.rules.SweepDue(due[i], now)
		if !ok {
			continue
		}
		matched, err := s.cancelBySystem(ctx, due[i], now)
		if err != nil {
			return swept, err
		}
		if matched {
			swept[reason]++
		}
	}
	return swept, nil
}

func (s *service) TimeStatusFor(rental models.Rental) TimeStatus {
	return s.rules.ComputeTimeStatus(rental, s.now())
}

func (s *service) loadForParty(ctx context.Context, rentalID, actorID uuid.UUID) (*models.Rental, error) {
	rental, err := s.repo.FindByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.RenterID != actorID && rental.LessorID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this rental")
	}
	return rental, nil
}

// sweep applies an elapsed deadline as a system cancellation before the
// rental is acted on or returned. Failures here are best-effort: the stored
// state is returned and the sweep retries on the next access.
func (s *service) sweep(ctx context.Context, rental *models.Rental, now time.Time) *models.Rental {
	reason, due := s.rules.SweepDue(*rental, now)
	if !due {
		return rental
	}

	ctx = s.logg.WithRentalID(ctx, rental.ID.String())
	matched, err := s.cancelBySystem(ctx, *rental, now)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", string(reason)), "deadline sweep skipped")
		return rental
	}
	if !matched {
		if fresh, ferr := s.repo.FindByID(ctx, rental.ID); ferr == nil {
			return fresh
		}
		return rental
	}

	by := enums.CancelledBySystem
	rental.Status = enums.RentalStatusCancelled
	rental.CancelledBy = &by
	rental.CancelledAt = &now

	s.logg.Info(s.logg.WithField(ctx, "reason", string(reason)), "rental auto-cancelled")
	s.notify(ctx, "rental cancelled", func() error {
		return s.notifier.RentalCancelled(ctx, *rental, by)
	})
	return rental
}

func (s *service) cancelBySystem(ctx context.Context, rental models.Rental, now time.Time) (bool, error) {
	return s.repo.UpdateStatusIf(ctx, rental.ID, rental.Status, map[string]any{
		"status":       enums.RentalStatusCancelled,
		"cancelled_by": enums.CancelledBySystem,
		"cancelled_at": now,
	})
}

// applyTransition runs the compare-and-swap and reflects the updates back
// onto the in-memory rental. A lost race surfaces as a retryable conflict.
func (s *service) applyTransition(ctx context.Context, rental *models.Rental, expected enums.RentalStatus, updates map[string]any) (*models.Rental, error) {
	matched, err := s.repo.UpdateStatusIf(ctx, rental.ID, expected, updates)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "rental changed concurrently, re-fetch and retry")
	}
	return s.repo.FindByID(ctx, rental.ID)
}

func (s *service) notify(ctx context.Context, event string, fn func() error) {
	if s.notifier == nil {
		return
	}
	if err := fn(); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "event", event), "notification delivery failed")
	}
}
