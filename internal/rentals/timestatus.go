package rentals

import (
	"time"

	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
)

// TimePhase labels what a rental is currently waiting on.
type TimePhase string

const (
	PhaseAwaitingConfirmation TimePhase = "awaiting_confirmation"
	PhaseAwaitingPayment      TimePhase = "awaiting_payment"
	PhaseAwaitingPickup       TimePhase = "awaiting_pickup"
	PhaseInProgress           TimePhase = "in_progress"
	PhaseReturnOverdue        TimePhase = "return_overdue"
	PhaseClosed               TimePhase = "closed"
)

// TimeStatus is derived on demand from the rental and the current time. It is
// never stored, so it can not drift from the persisted state.
type TimeStatus struct {
	Phase     TimePhase      `json:"phase"`
	Deadline  *time.Time     `json:"deadline,omitempty"`
	Remaining *time.Duration `json:"remaining,omitempty"`
	Overdue   bool           `json:"overdue"`
}

// ComputeTimeStatus reports which clock the rental is running against and how
// much of it is left.
func (r Rules) ComputeTimeStatus(rental models.Rental, now time.Time) TimeStatus {
	switch rental.Status {
	case enums.RentalStatusPending:
		return deadlineStatus(PhaseAwaitingConfirmation, r.ConfirmationDeadline(rental), now)
	case enums.RentalStatusConfirmed:
		if rental.PaymentStatus != enums.PaymentStatusPaid {
			return deadlineStatus(PhaseAwaitingPayment, r.PaymentDeadline(rental), now)
		}
		return deadlineStatus(PhaseAwaitingPickup, rental.EndDate, now)
	case enums.RentalStatusActive:
		if now.After(rental.EndDate) {
			return deadlineStatus(PhaseReturnOverdue, rental.EndDate, now)
		}
		return deadlineStatus(PhaseInProgress, rental.EndDate, now)
	default:
		return TimeStatus{Phase: PhaseClosed}
	}
}

func deadlineStatus(phase TimePhase, deadline time.Time, now time.Time) TimeStatus {
	remaining := deadline.Sub(now)
	overdue := remaining < 0
	if overdue {
		remaining = 0
	}
	return TimeStatus{
		Phase:     phase,
		Deadline:  &deadline,
		Remaining: &remaining,
		Overdue:   overdue,
	}
}
