package contracts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

type CreateContractInput struct {
	LessorID    uuid.UUID       `json:"-"`
	BikeModel   string          `json:"bikeModel" validate:"required"`
	BikePlate   string          `json:"bikePlate" validate:"required"`
	Description *string         `json:"description"`
	PricePerDay decimal.Decimal `json:"pricePerDay" validate:"required"`
	ServiceFee  decimal.Decimal `json:"serviceFee"`
}

type SetAvailabilityInput struct {
	ContractID uuid.UUID            `json:"-"`
	ActorID    uuid.UUID            `json:"-"`
	Status     enums.ContractStatus `json:"status" validate:"required"`
}

type Service interface {
	Create(ctx context.Context, input CreateContractInput) (*models.Contract, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListAvailable(ctx context.Context, params pagination.Params) ([]models.Contract, error)
	ListByLessor(ctx context.Context, lessorID uuid.UUID, params pagination.Params) ([]models.Contract, error)
	SetAvailability(ctx context.Context, input SetAvailabilityInput) (*models.Contract, error)
}

type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("contracts repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, input CreateContractInput) (*models.Contract, error) {
	if strings.TrimSpace(input.BikeModel) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bike model is required")
	}
	if strings.TrimSpace(input.BikePlate) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bike plate is required")
	}
	if input.PricePerDay.IsNegative() || input.PricePerDay.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per day must be positive")
	}
	if input.ServiceFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service fee must not be negative")
	}

	contract := &models.Contract{
		LessorID:    input.LessorID,
		BikeModel:   strings.TrimSpace(input.BikeModel),
		BikePlate:   strings.TrimSpace(input.BikePlate),
		Description: input.Description,
		PricePerDay: input.PricePerDay,
		ServiceFee:  input.ServiceFee,
		Status:      enums.ContractStatusAvailable,
	}
	if err := s.repo.Create(ctx, contract); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "contract_id", contract.ID.String()), "contract created")
	return contract, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListAvailable(ctx context.Context, params pagination.Params) ([]models.Contract, error) {
	return s.repo.ListAvailable(ctx, params)
}

func (s *service) ListByLessor(ctx context.Context, lessorID uuid.UUID, params pagination.Params) ([]models.Contract, error) {
	return s.repo.ListByLessor(ctx, lessorID, params)
}

func (s *service) SetAvailability(ctx context.Context, input SetAvailabilityInput) (*models.Contract, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown contract status")
	}

	contract, err := s.repo.FindByID(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.LessorID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owning lessor can change availability")
	}

	if err := s.repo.UpdateStatus(ctx, contract.ID, input.Status); err != nil {
		return nil, err
	}
	contract.Status = input.Status
	return contract, nil
}
