package rentals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentmoto/rentmoto-backend/pkg/enums"
)

func TestComputeTimeStatus(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("pending counts down confirmation window", func(t *testing.T) {
		rental := baseRental(t0)
		status := testRules.ComputeTimeStatus(rental, t0.Add(20*time.Hour))

		assert.Equal(t, PhaseAwaitingConfirmation, status.Phase)
		require.NotNil(t, status.Deadline)
		assert.True(t, status.Deadline.Equal(t0.Add(24*time.Hour)))
		require.NotNil(t, status.Remaining)
		assert.Equal(t, 4*time.Hour, *status.Remaining)
		assert.False(t, status.Overdue)
	})

	t.Run("confirmed unpaid counts down payment deadline", func(t *testing.T) {
		rental := baseRental(t0)
		rental.Status = enums.RentalStatusConfirmed
		status := testRules.ComputeTimeStatus(rental, t0.Add(9*24*time.Hour))

		assert.Equal(t, PhaseAwaitingPayment, status.Phase)
		assert.True(t, status.Overdue)
		require.NotNil(t, status.Remaining)
		assert.Equal(t, time.Duration(0), *status.Remaining)
	})

	t.Run("active past end date is return overdue", func(t *testing.T) {
		rental := baseRental(t0)
		rental.Status = enums.RentalStatusActive
		status := testRules.ComputeTimeStatus(rental, rental.EndDate.Add(time.Hour))

		assert.Equal(t, PhaseReturnOverdue, status.Phase)
		assert.True(t, status.Overdue)
	})

	t.Run("terminal states are closed", func(t *testing.T) {
		rental := baseRental(t0)
		rental.Status = enums.RentalStatusCompleted
		status := testRules.ComputeTimeStatus(rental, t0)

		assert.Equal(t, PhaseClosed, status.Phase)
		assert.Nil(t, status.Deadline)
	})
}
