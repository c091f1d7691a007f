package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentmoto/rentmoto-backend/pkg/db"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	ListByRental(ctx context.Context, rentalID uuid.UUID) ([]models.PaymentTransaction, error)
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

func (r *repository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if err := r.conn(ctx).Create(txn).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "transaction already recorded")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment transaction")
	}
	return nil
}

func (r *repository) ListByRental(ctx context.Context, rentalID uuid.UUID) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := r.conn(ctx).
		Where("rental_id = ?", rentalID).
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing payment transactions")
	}
	return txns, nil
}
