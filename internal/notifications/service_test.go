package notifications

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

	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

type stubRepo struct {
	rows []models.Notification
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	s.rows = append(s.rows, *notification)
	return nil
}

func (s *stubRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, error) {
	var out []models.Notification
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, row := range s.rows {
		if row.UserID == userID && row.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *stubRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	for i := range s.rows {
		if s.rows[i].ID == id && s.rows[i].UserID == userID && s.rows[i].ReadAt == nil {
			s.rows[i].ReadAt = &at
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
}

func (s *stubRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) error {
	for i := range s.rows {
		if s.rows[i].UserID == userID && s.rows[i].ReadAt == nil {
			s.rows[i].ReadAt = &at
		}
	}
	return nil
}

func newTestService(t *testing.T) (Service, *stubRepo) {
	t.Helper()
	repo := &stubRepo{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	publisher, err := NewPublisher(nil, logg)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Publisher: publisher,
		Logger:    logg,
	})
	require.NoError(t, err)
	return svc, repo
}

func sampleRental() models.Rental {
	return models.Rental{
		ID:         uuid.New(),
		RenterID:   uuid.New(),
		LessorID:   uuid.New(),
		StartDate:  time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		TotalPrice: decimal.NewFromInt(320),
	}
}

func TestRentalRequestedNotifiesLessor(t *testing.T) {
	svc, repo := newTestService(t)
	rental := sampleRental()

	require.NoError(t, svc.RentalRequested(context.Background(), rental))

	require.Len(t, repo.rows, 1)
	assert.Equal(t, rental.LessorID, repo.rows[0].UserID)
	assert.Equal(t, enums.NotificationTypeRentalPending, repo.rows[0].Type)
	require.NotNil(t, repo.rows[0].RentalID)
	assert.Equal(t, rental.ID, *repo.rows[0].RentalID)
}

func TestRentalConfirmedNotifiesRenter(t *testing.T) {
	svc, repo := newTestService(t)
	rental := sampleRental()

	require.NoError(t, svc.RentalConfirmed(context.Background(), rental))

	require.Len(t, repo.rows, 1)
	assert.Equal(t, rental.RenterID, repo.rows[0].UserID)
	assert.Equal(t, enums.NotificationTypeRentalConfirmed, repo.rows[0].Type)
}

func TestRentalCancelledTargets(t *testing.T) {
	rental := sampleRental()

	t.Run("renter cancellation notifies lessor only", func(t *testing.T) {
		svc, repo := newTestService(t)
		require.NoError(t, svc.RentalCancelled(context.Background(), rental, enums.CancelledByRenter))
		require.Len(t, repo.rows, 1)
		assert.Equal(t, rental.LessorID, repo.rows[0].UserID)
	})

	t.Run("lessor rejection notifies renter only", func(t *testing.T) {
		svc, repo := newTestService(t)
		require.NoError(t, svc.RentalCancelled(context.Background(), rental, enums.CancelledByLessor))
		require.Len(t, repo.rows, 1)
		assert.Equal(t, rental.RenterID, repo.rows[0].UserID)
	})

	t.Run("system cancellation notifies both parties", func(t *testing.T) {
		svc, repo := newTestService(t)
		require.NoError(t, svc.RentalCancelled(context.Background(), rental, enums.CancelledBySystem))
		assert.Len(t, repo.rows, 2)
	})
}

func TestMarkReadFlow(t *testing.T) {
	svc, repo := newTestService(t)
	rental := sampleRental()

	require.NoError(t, svc.RentalRequested(context.Background(), rental))
	require.NoError(t, svc.PaymentReceived(context.Background(), rental))

	count, err := svc.UnreadCount(context.Background(), rental.LessorID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, svc.MarkRead(context.Background(), repo.rows[0].ID, rental.LessorID))

	count, err = svc.UnreadCount(context.Background(), rental.LessorID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// wrong owner cannot mark someone else's notification
	err = svc.MarkRead(context.Background(), repo.rows[1].ID, uuid.New())
	require.Error(t, err)

	require.NoError(t, svc.MarkAllRead(context.Background(), rental.LessorID))
	count, err = svc.UnreadCount(context.Background(), rental.LessorID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
