package contracts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentmoto/rentmoto-backend/pkg/db"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contract *models.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListAvailable(ctx context.Context, params pagination.Params) ([]models.Contract, error)
	ListByLessor(ctx context.Context, lessorID uuid.UUID, params pagination.Params) ([]models.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContractStatus) error
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

func (r *repository) Create(ctx context.Context, contract *models.Contract) error {
	if err := r.conn(ctx).Create(contract).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating contract")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.conn(ctx).Where("id = ?", id).First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finding contract")
	}
	return &contract, nil
}

func (r *repository) ListAvailable(ctx context.Context, params pagination.Params) ([]models.Contract, error) {
	return r.list(ctx, "status = ?", enums.ContractStatusAvailable, params)
}

func (r *repository) ListByLessor(ctx context.Context, lessorID uuid.UUID, params pagination.Params) ([]models.Contract, error) {
	return r.list(ctx, "lessor_id = ?", lessorID, params)
}

func (r *repository) list(ctx context.Context, cond string, arg any, params pagination.Params) ([]models.Contract, error) {
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

	var contracts []models.Contract
	if err := query.Find(&contracts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing contracts")
	}
	return contracts, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContractStatus) error {
	result := r.conn(ctx).
		Model(&models.Contract{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "updating contract status")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	return nil
}
