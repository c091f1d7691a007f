package rentals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentmoto/rentmoto-backend/pkg/db"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

// Repository persists rentals. Status patches go through UpdateStatusIf so
// every transition is a compare-and-swap on the expected current status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rental *models.Rental) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	ListByRenter(ctx context.Context, renterID uuid.UUID, params pagination.Params) ([]models.Rental, error)
	ListByLessor(ctx context.Context, lessorID uuid.UUID, params pagination.Params) ([]models.Rental, error)
	// UpdateStatusIf applies updates only when the rental is still in the
	// expected status; matched reports whether any row changed.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected enums.RentalStatus, updates map[string]any) (matched bool, err error)
	// ListDueForSweep returns rentals whose confirmation or payment deadline
	// has elapsed, oldest first, up to limit rows.
	ListDueForSweep(ctx context.Context, now time.Time, confirmationWindow, paymentOffset time.Duration, limit int) ([]models.Rental, error)
}

type repository struct {
	client *db.Client
	tx     *gorm.DB
}

func NewRepository(client *db.Client) Repository {
	return &repository{client: client}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{client: r.client, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	if r.tx != nil {
		return r.tx
	}
	return r.client.DB().WithContext(ctx)
}

func (r *repository) Create(ctx context.Context, rental *models.Rental) error {
	if err := r.conn(ctx).Create(rental).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating rental")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	err := r.conn(ctx).Where("id = ?", id).First(&rental).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finding rental")
	}
	return &rental, nil
}

func (r *repository) ListByRenter(ctx context.Context, renterID uuid.UUID, params pagination.Params) ([]models.Rental, error) {
	return r.list(ctx, "renter_id = ?", renterID, params)
}

func (r *repository) ListByLessor(ctx context.Context, lessorID uuid.UUID, params pagination.Params) ([]models.Rental, error) {
	return r.list(ctx, "lessor_id = ?", lessorID, params)
}

func (r *repository) list(ctx context.Context, cond string, arg any, params pagination.Params) ([]models.Rental, error) {
	query := r.conn(ctx).
		Where(cond, arg).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rentals []models.Rental
	if err := query.Find(&rentals).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing rentals")
	}
	return rentals, nil
}

func (r *repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected enums.RentalStatus, updates map[string]any) (bool, error) {
	result := r.conn(ctx).
		Model(&models.Rental{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "updating rental status")
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListDueForSweep(ctx context.Context, now time.Time, confirmationWindow, paymentOffset time.Duration, limit int) ([]models.Rental, error) {
	// a NULL payment_deadline falls back to start_date - offset, expressed as
	// start_date <= now + offset so the comparison stays driver-portable
	confirmationCutoff := now.Add(-confirmationWindow)
	fallbackCutoff := now.Add(paymentOffset)

	var rentals []models.Rental
	err := r.conn(ctx).
		Where(
			"(status = ? AND created_at <= ?) OR "+
				"(status = ? AND payment_status = ? AND "+
				"((payment_deadline IS NOT NULL AND payment_deadline <= ?) OR "+
				"(payment_deadline IS NULL AND start_date <= ?)))",
			enums.RentalStatusPending, confirmationCutoff,
			enums.RentalStatusConfirmed, enums.PaymentStatusPending, now, fallbackCutoff,
		).
		Order("created_at ASC").
		Limit(limit).
		Find(&rentals).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing rentals due for sweep")
	}
	return rentals, nil
}
