package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
)

// Deduper is the slice of the Redis client used to guard callback replays.
type Deduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	PaymentCallbackKey(provider, transID string) string
}

// RentalApplier forwards a successful payment into the rental lifecycle.
type RentalApplier interface {
	ApplyPaymentResult(ctx context.Context, rentalID uuid.UUID, amount decimal.Decimal) (*models.Rental, error)
}

// CallbackInput is the provider-agnostic shape both gateways reduce to.
type CallbackInput struct {
	Provider   enums.PaymentProvider
	OrderID    uuid.UUID
	TransID    string
	Amount     decimal.Decimal
	ResultCode string
}

// CallbackOutcome tells the webhook controller how to acknowledge.
type CallbackOutcome struct {
	Duplicate bool
	Applied   bool
	Reason    string
	Rental    *models.Rental
}

type Service interface {
	HandleCallback(ctx context.Context, input CallbackInput) (*CallbackOutcome, error)
	ListByRental(ctx context.Context, rentalID uuid.UUID) ([]models.PaymentTransaction, error)
}

type ServiceParams struct {
	Repo     Repository
	Rentals  RentalApplier
	Deduper  Deduper
	Logger   *logger.Logger
	DedupTTL time.Duration
}

type service struct {
	repo     Repository
	rentals  RentalApplier
	deduper  Deduper
	logg     *logger.Logger
	dedupTTL time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository is required")
	}
	if params.Rentals == nil {
		return nil, fmt.Errorf("rental applier is required")
	}
	if params.Deduper == nil {
		return nil, fmt.Errorf("deduper is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.DedupTTL <= 0 {
		params.DedupTTL = 72 * time.Hour
	}
	return &service{
		repo:     params.Repo,
		rentals:  params.Rentals,
		deduper:  params.Deduper,
		logg:     params.Logger,
		dedupTTL: params.DedupTTL,
	}, nil
}

// Succeeded reports whether the gateway result code signals success. Both
// providers use zero-ish codes but disagree on the exact literal.
func Succeeded(resultCode string) bool {
	code := strings.TrimSpace(resultCode)
	return code == "0" || code == "00"
}

func (s *service) HandleCallback(ctx context.Context, input CallbackInput) (*CallbackOutcome, error) {
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	if strings.TrimSpace(input.TransID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transId is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"provider": input.Provider.String(),
		"trans_id": input.TransID,
		"order_id": input.OrderID.String(),
	})

	key := s.deduper.PaymentCallbackKey(input.Provider.String(), input.TransID)
	fresh, err := s.deduper.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.dedupTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking callback idempotency")
	}
	if !fresh {
		s.logg.Info(ctx, "duplicate payment callback acknowledged")
		return &CallbackOutcome{Duplicate: true}, nil
	}

	succeeded := Succeeded(input.ResultCode)
	txn := &models.PaymentTransaction{
		RentalID:   input.OrderID,
		Provider:   input.Provider,
		TransID:    input.TransID,
		Amount:     input.Amount,
		ResultCode: strings.TrimSpace(input.ResultCode),
		Succeeded:  succeeded,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		// a row already present means Redis forgot a replay; still a duplicate
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			s.logg.Info(ctx, "duplicate payment callback acknowledged (audit row exists)")
			return &CallbackOutcome{Duplicate: true}, nil
		}
		s.releaseDedup(ctx, key)
		return nil, err
	}

	if !succeeded {
		s.logg.Info(ctx, "payment callback reported failure")
		return &CallbackOutcome{Reason: "gateway reported failure"}, nil
	}

	rental, err := s.rentals.ApplyPaymentResult(ctx, input.OrderID, input.Amount)
	if err != nil {
		typed := pkgerrors.As(err)
		// permanent guard rejections are acknowledged so the gateway stops
		// retrying; transient errors release the dedup key and propagate
		if typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			s.logg.Warn(s.logg.WithField(ctx, "reason", typed.Message()), "payment callback rejected by lifecycle")
			return &CallbackOutcome{Reason: typed.Message()}, nil
		}
		s.releaseDedup(ctx, key)
		return nil, err
	}

	s.logg.Info(ctx, "payment applied")
	return &CallbackOutcome{Applied: true, Rental: rental}, nil
}

func (s *service) ListByRental(ctx context.Context, rentalID uuid.UUID) ([]models.PaymentTransaction, error) {
	return s.repo.ListByRental(ctx, rentalID)
}

// releaseDedup lets the gateway's retry of a transiently failed callback
// through the idempotency guard.
func (s *service) releaseDedup(ctx context.Context, key string) {
	if err := s.deduper.Del(ctx, key); err != nil {
		s.logg.Warn(ctx, "releasing callback dedup key failed")
	}
}
