package rentals

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentmoto/rentmoto-backend/internal/qr"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
)

// Rules holds the time windows the lifecycle enforces. All guard decisions
// are pure functions over (rental, now) so they can be exercised without a
// database.
type Rules struct {
	// ConfirmationWindow is how long a pending rental waits for the lessor
	// before it is auto-cancelled.
	ConfirmationWindow time.Duration
	// PaymentDeadlineOffset computes the fallback payment deadline when the
	// lessor did not set one: StartDate minus the offset.
	PaymentDeadlineOffset time.Duration
	// QRMaxStale is the maximum age of a handover token at redemption time.
	QRMaxStale time.Duration
}

// SweepReason says why the deadline sweep cancelled a rental.
type SweepReason string

const (
	SweepReasonConfirmationExpired SweepReason = "confirmation_expired"
	SweepReasonPaymentExpired      SweepReason = "payment_expired"
)

// ConfirmationDeadline is the instant a pending rental expires unconfirmed.
func (r Rules) ConfirmationDeadline(rental models.Rental) time.Time {
	return rental.CreatedAt.Add(r.ConfirmationWindow)
}

// PaymentDeadline resolves the effective payment deadline: the lessor-set
// value when present, otherwise StartDate minus the configured offset.
func (r Rules) PaymentDeadline(rental models.Rental) time.Time {
	if rental.PaymentDeadline != nil {
		return *rental.PaymentDeadline
	}
	return rental.StartDate.Add(-r.PaymentDeadlineOffset)
}

// SweepDue reports whether the rental has silently passed a deadline and must
// be cancelled by the system before its state is acted on or shown. Reads
// call this first; the cron sweep uses the same decision.
func (r Rules) SweepDue(rental models.Rental, now time.Time) (SweepReason, bool) {
	switch rental.Status {
	case enums.RentalStatusPending:
		if !now.Before(r.ConfirmationDeadline(rental)) {
			return SweepReasonConfirmationExpired, true
		}
	case enums.RentalStatusConfirmed:
		if rental.PaymentStatus == enums.PaymentStatusPaid {
			return "", false
		}
		if !now.Before(r.PaymentDeadline(rental)) {
			return SweepReasonPaymentExpired, true
		}
	}
	return "", false
}

// CanConfirm guards the lessor accepting a pending rental.
func (r Rules) CanConfirm(rental models.Rental, now time.Time) *pkgerrors.Error {
	if err := rejectTerminal(rental); err != nil {
		return err
	}
	if rental.Status != enums.RentalStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending rentals can be confirmed")
	}
	if _, due := r.SweepDue(rental, now); due {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "confirmation deadline passed")
	}
	return nil
}

// CanCancel guards a party-initiated cancellation. Either party may cancel
// while the rental is pending or confirmed-but-unpaid; once payment lands
// the handover flow is the only way forward.
func (r Rules) CanCancel(rental models.Rental, actor enums.CancelledBy) *pkgerrors.Error {
	if err := rejectTerminal(rental); err != nil {
		return err
	}
	switch actor {
	case enums.CancelledByRenter, enums.CancelledByLessor:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown cancelling party")
	}
	switch rental.Status {
	case enums.RentalStatusPending:
		return nil
	case enums.RentalStatusConfirmed:
		if rental.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "paid rentals cannot be cancelled")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "rental can no longer be cancelled")
}

// CanApplyPayment guards marking a confirmed rental as paid from a gateway
// callback that reported success.
func (r Rules) CanApplyPayment(rental models.Rental, amount decimal.Decimal, now time.Time) *pkgerrors.Error {
	if err := rejectTerminal(rental); err != nil {
		return err
	}
	if rental.Status != enums.RentalStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rental is not awaiting payment")
	}
	if rental.PaymentStatus == enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already completed")
	}
	if now.After(r.PaymentDeadline(rental)) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment deadline passed")
	}
	if !amount.Equal(rental.TotalPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount does not match total price")
	}
	return nil
}

// CanIssueQR guards minting a handover token for the rental's current phase.
func (r Rules) CanIssueQR(rental models.Rental, qrType enums.QRType) *pkgerrors.Error {
	if err := rejectTerminal(rental); err != nil {
		return err
	}
	switch qrType {
	case enums.QRTypePickup:
		if rental.Status != enums.RentalStatusConfirmed || rental.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental is not ready for pickup")
		}
	case enums.QRTypeReturn:
		if rental.Status != enums.RentalStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid state for return")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown qr type")
	}
	return nil
}

// CanRedeemPickup guards the confirmed+paid -> active transition via a fresh
// pickup token.
func (r Rules) CanRedeemPickup(rental models.Rental, token qr.Token, now time.Time) *pkgerrors.Error {
	if err := rejectTerminal(rental); err != nil {
		return err
	}
	if err := r.checkToken(rental, token, enums.QRTypePickup, now); err != nil {
		return err
	}
	if rental.Status != enums.RentalStatusConfirmed || rental.PaymentStatus != enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rental is not ready for pickup")
	}
	if now.Before(rental.StartDate) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rental period has not started")
	}
	if now.After(rental.EndDate) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rental period has ended")
	}
	if rental.PickupTokenID != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "QR already used")
	}
	return nil
}

// CanRedeemReturn guards the active -> completed transition via a fresh
// return token.
func (r Rules) CanRedeemReturn(rental models.Rental, token qr.Token, now time.Time) *pkgerrors.Error {
	if err := rejectTerminal(rental); err != nil {
		return err
	}
	if err := r.checkToken(rental, token, enums.QRTypeReturn, now); err != nil {
		return err
	}
	if rental.Status != enums.RentalStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid state for return")
	}
	if now.After(rental.EndDate) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rental period has ended")
	}
	if rental.ReturnTokenID != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "QR already used")
	}
	return nil
}

func (r Rules) checkToken(rental models.Rental, token qr.Token, want enums.QRType, now time.Time) *pkgerrors.Error {
	if token.RentalID != rental.ID {
		return pkgerrors.New(pkgerrors.CodeValidation, "QR does not belong to this rental")
	}
	if token.Type != want {
		return pkgerrors.New(pkgerrors.CodeValidation, "wrong QR type for this operation")
	}
	if now.Sub(token.IssuedAt) > r.QRMaxStale {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "QR expired")
	}
	return nil
}

func rejectTerminal(rental models.Rental) *pkgerrors.Error {
	switch rental.Status {
	case enums.RentalStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rental already cancelled")
	case enums.RentalStatusCompleted:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rental already completed")
	}
	return nil
}
