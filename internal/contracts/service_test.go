package contracts

import (
	"context"
	"io"
	"testing"

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
	contracts map[uuid.UUID]*models.Contract
}

func newStubRepo() *stubRepo {
	return &stubRepo{contracts: map[uuid.UUID]*models.Contract{}}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, contract *models.Contract) error {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	clone := *contract
	s.contracts[contract.ID] = &clone
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, ok := s.contracts[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	clone := *contract
	return &clone, nil
}

func (s *stubRepo) ListAvailable(ctx context.Context, params pagination.Params) ([]models.Contract, error) {
	var out []models.Contract
	for _, c := range s.contracts {
		if c.Status == enums.ContractStatusAvailable {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubRepo) ListByLessor(ctx context.Context, lessorID uuid.UUID, params pagination.Params) ([]models.Contract, error) {
	var out []models.Contract
	for _, c := range s.contracts {
		if c.LessorID == lessorID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContractStatus) error {
	contract, ok := s.contracts[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	contract.Status = status
	return nil
}

func newTestService(t *testing.T) (Service, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, repo
}

func TestCreateContract(t *testing.T) {
	svc, _ := newTestService(t)
	lessorID := uuid.New()

	contract, err := svc.Create(context.Background(), CreateContractInput{
		LessorID:    lessorID,
		BikeModel:   "Honda Wave",
		BikePlate:   "59-A1 123.45",
		PricePerDay: decimal.NewFromInt(100),
		ServiceFee:  decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	assert.Equal(t, lessorID, contract.LessorID)
	assert.Equal(t, enums.ContractStatusAvailable, contract.Status)
}

func TestCreateContractValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name  string
		input CreateContractInput
	}{
		{"missing model", CreateContractInput{BikePlate: "x", PricePerDay: decimal.NewFromInt(1)}},
		{"missing plate", CreateContractInput{BikeModel: "x", PricePerDay: decimal.NewFromInt(1)}},
		{"zero price", CreateContractInput{BikeModel: "x", BikePlate: "y"}},
		{"negative fee", CreateContractInput{
			BikeModel: "x", BikePlate: "y",
			PricePerDay: decimal.NewFromInt(1),
			ServiceFee:  decimal.NewFromInt(-1),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestSetAvailability(t *testing.T) {
	svc, _ := newTestService(t)
	lessorID := uuid.New()

	contract, err := svc.Create(context.Background(), CreateContractInput{
		LessorID:    lessorID,
		BikeModel:   "Honda Wave",
		BikePlate:   "59-A1 123.45",
		PricePerDay: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = svc.SetAvailability(context.Background(), SetAvailabilityInput{
		ContractID: contract.ID,
		ActorID:    uuid.New(),
		Status:     enums.ContractStatusUnavailable,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	updated, err := svc.SetAvailability(context.Background(), SetAvailabilityInput{
		ContractID: contract.ID,
		ActorID:    lessorID,
		Status:     enums.ContractStatusUnavailable,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ContractStatusUnavailable, updated.Status)
}
