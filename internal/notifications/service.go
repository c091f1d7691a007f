package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

// Service writes in-app notifications and mirrors them onto Pub/Sub. The
// lifecycle-event methods satisfy the rentals notifier contract; delivery
// problems are surfaced as errors for the caller to log, never to abort on.
type Service interface {
	RentalRequested(ctx context.Context, rental models.Rental) error
	RentalConfirmed(ctx context.Context, rental models.Rental) error
	RentalCancelled(ctx context.Context, rental models.Rental, by enums.CancelledBy) error
	PaymentReceived(ctx context.Context, rental models.Rental) error

	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

type ServiceParams struct {
	Repo      Repository
	Publisher *Publisher
	Logger    *logger.Logger
	Clock     func() time.Time
}

type service struct {
	repo      Repository
	publisher *Publisher
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		repo:      params.Repo,
		publisher: params.Publisher,
		logg:      params.Logger,
		now:       params.Clock,
	}, nil
}

func (s *service) RentalRequested(ctx context.Context, rental models.Rental) error {
	return s.deliver(ctx, rental.LessorID, rental.ID, enums.NotificationTypeRentalPending,
		"New rental request",
		fmt.Sprintf("A renter requested your bike from %s to %s. Confirm within 24 hours.",
			rental.StartDate.Format("Jan 2"), rental.EndDate.Format("Jan 2")),
	)
}

func (s *service) RentalConfirmed(ctx context.Context, rental models.Rental) error {
	return s.deliver(ctx, rental.RenterID, rental.ID, enums.NotificationTypeRentalConfirmed,
		"Rental confirmed",
		"The lessor confirmed your rental. Complete the payment before the deadline.",
	)
}

func (s *service) RentalCancelled(ctx context.Context, rental models.Rental, by enums.CancelledBy) error {
	var message string
	switch by {
	case enums.CancelledByRenter:
		message = "The renter cancelled the rental."
	case enums.CancelledByLessor:
		message = "The lessor declined the rental request."
	default:
		message = "The rental was cancelled because a deadline passed."
	}

	// tell the party that did not initiate; system cancellations tell both
	var err error
	if by != enums.CancelledByLessor {
		err = s.deliver(ctx, rental.LessorID, rental.ID, enums.NotificationTypeRentalCancelled, "Rental cancelled", message)
	}
	if by != enums.CancelledByRenter {
		if derr := s.deliver(ctx, rental.RenterID, rental.ID, enums.NotificationTypeRentalCancelled, "Rental cancelled", message); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

func (s *service) PaymentReceived(ctx context.Context, rental models.Rental) error {
	return s.deliver(ctx, rental.LessorID, rental.ID, enums.NotificationTypePaymentReceived,
		"Payment received",
		fmt.Sprintf("Payment of %s was received for your rental.", rental.TotalPrice.StringFixed(2)),
	)
}

func (s *service) deliver(ctx context.Context, userID, rentalID uuid.UUID, kind enums.NotificationType, title, message string) error {
	notification := &models.Notification{
		UserID:   userID,
		RentalID: &rentalID,
		Type:     kind,
		Title:    title,
		Message:  message,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}
	s.publisher.Publish(ctx, *notification)
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, params)
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID, s.now())
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}
