package rentals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentmoto/rentmoto-backend/pkg/db"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

func setupRentalsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	rentals := `
CREATE TABLE IF NOT EXISTS rentals (
  id TEXT PRIMARY KEY,
  contract_id TEXT NOT NULL,
  renter_id TEXT NOT NULL,
  lessor_id TEXT NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  cancelled_by TEXT,
  payment_deadline DATETIME,
  total_price TEXT NOT NULL,
  pickup_token_id TEXT,
  return_token_id TEXT,
  confirmed_at DATETIME,
  activated_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(rentals).Error)
	return conn
}

func seedRental(t *testing.T, conn *gorm.DB, status enums.RentalStatus, created time.Time) *models.Rental {
	t.Helper()

	rental := &models.Rental{
		ID:            uuid.New(),
		ContractID:    uuid.New(),
		RenterID:      uuid.New(),
		LessorID:      uuid.New(),
		StartDate:     created.Add(240 * time.Hour),
		EndDate:       created.Add(312 * time.Hour),
		Status:        status,
		PaymentStatus: enums.PaymentStatusPending,
		TotalPrice:    decimal.RequireFromString("450000.00"),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, conn.Create(rental).Error)
	return rental
}

func TestRepositoryCreateAndFind(t *testing.T) {
	conn := setupRentalsTestDB(t)
	repo := NewRepository(db.NewFromConn(conn))
	ctx := context.Background()

	rental := &models.Rental{
		ID:            uuid.New(),
		ContractID:    uuid.New(),
		RenterID:      uuid.New(),
		LessorID:      uuid.New(),
		StartDate:     time.Now().Add(240 * time.Hour),
		EndDate:       time.Now().Add(312 * time.Hour),
		Status:        enums.RentalStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		TotalPrice:    decimal.RequireFromString("450000.00"),
	}
	require.NoError(t, repo.Create(ctx, rental))

	found, err := repo.FindByID(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, rental.ID, found.ID)
	assert.Equal(t, enums.RentalStatusPending, found.Status)
	assert.True(t, rental.TotalPrice.Equal(found.TotalPrice))
}

func TestRepositoryFindMissing(t *testing.T) {
	conn := setupRentalsTestDB(t)
	repo := NewRepository(db.NewFromConn(conn))

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rental not found")
}

func TestRepositoryUpdateStatusIf(t *testing.T) {
	conn := setupRentalsTestDB(t)
	repo := NewRepository(db.NewFromConn(conn))
	ctx := context.Background()

	rental := seedRental(t, conn, enums.RentalStatusPending, time.Now().Add(-time.Hour))

	confirmedAt := time.Now()
	matched, err := repo.UpdateStatusIf(ctx, rental.ID, enums.RentalStatusPending, map[string]any{
		"status":       enums.RentalStatusConfirmed,
		"confirmed_at": confirmedAt,
	})
	require.NoError(t, err)
	assert.True(t, matched)

	found, err := repo.FindByID(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusConfirmed, found.Status)
	require.NotNil(t, found.ConfirmedAt)

	// stale expectation loses the swap
	matched, err = repo.UpdateStatusIf(ctx, rental.ID, enums.RentalStatusPending, map[string]any{
		"status": enums.RentalStatusCancelled,
	})
	require.NoError(t, err)
	assert.False(t, matched)

	found, err = repo.FindByID(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusConfirmed, found.Status)
}

func TestRepositoryListDueForSweep(t *testing.T) {
	conn := setupRentalsTestDB(t)
	repo := NewRepository(db.NewFromConn(conn))
	ctx := context.Background()

	now := time.Now().UTC()
	window := 24 * time.Hour
	offset := 48 * time.Hour

	setColumns := func(rental *models.Rental, updates map[string]any) {
		t.Helper()
		require.NoError(t, conn.Model(&models.Rental{}).Where("id = ?", rental.ID).Updates(updates).Error)
	}

	overduePending := seedRental(t, conn, enums.RentalStatusPending, now.Add(-26*time.Hour))
	seedRental(t, conn, enums.RentalStatusPending, now.Add(-time.Hour)) // still inside the window

	explicitDeadline := seedRental(t, conn, enums.RentalStatusConfirmed, now.Add(-10*time.Hour))
	setColumns(explicitDeadline, map[string]any{"payment_deadline": now.Add(-time.Minute)})

	// no explicit deadline; start_date close enough that the fallback elapsed
	fallbackDue := seedRental(t, conn, enums.RentalStatusConfirmed, now.Add(-5*time.Hour))
	setColumns(fallbackDue, map[string]any{"start_date": now.Add(24 * time.Hour)})

	// fallback deadline still ahead (start_date is 240h out in seedRental)
	seedRental(t, conn, enums.RentalStatusConfirmed, now.Add(-4*time.Hour))

	paid := seedRental(t, conn, enums.RentalStatusConfirmed, now.Add(-30*time.Hour))
	setColumns(paid, map[string]any{
		"payment_status":   enums.PaymentStatusPaid,
		"payment_deadline": now.Add(-time.Hour),
	})

	cancelled := seedRental(t, conn, enums.RentalStatusCancelled, now.Add(-40*time.Hour))
	setColumns(cancelled, map[string]any{"payment_deadline": now.Add(-time.Hour)})

	due, err := repo.ListDueForSweep(ctx, now, window, offset, 10)
	require.NoError(t, err)
	require.Len(t, due, 3)

	// oldest first
	assert.Equal(t, overduePending.ID, due[0].ID)
	assert.Equal(t, explicitDeadline.ID, due[1].ID)
	assert.Equal(t, fallbackDue.ID, due[2].ID)

	limited, err := repo.ListDueForSweep(ctx, now, window, offset, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRepositoryListByRenter(t *testing.T) {
	conn := setupRentalsTestDB(t)
	repo := NewRepository(db.NewFromConn(conn))
	ctx := context.Background()

	base := time.Now().Add(-24 * time.Hour)
	older := seedRental(t, conn, enums.RentalStatusPending, base)
	newer := seedRental(t, conn, enums.RentalStatusConfirmed, base.Add(time.Hour))
	require.NoError(t, conn.Model(&models.Rental{}).Where("id = ?", newer.ID).Update("renter_id", older.RenterID).Error)
	seedRental(t, conn, enums.RentalStatusPending, base) // different renter

	list, err := repo.ListByRenter(ctx, older.RenterID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}
