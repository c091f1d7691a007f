package rentals

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentmoto/rentmoto-backend/pkg/enums"
)

type CreateRentalInput struct {
	ContractID uuid.UUID `json:"contractId" validate:"required"`
	RenterID   uuid.UUID `json:"-"`
	StartDate  time.Time `json:"startDate" validate:"required"`
	EndDate    time.Time `json:"endDate" validate:"required"`
}

type ConfirmRentalInput struct {
	RentalID uuid.UUID `json:"-"`
	ActorID  uuid.UUID `json:"-"`
	// PaymentDeadline is optional; when omitted the deadline falls back to
	// the rental start date minus the configured offset.
	PaymentDeadline *time.Time `json:"paymentDeadline"`
}

type CancelRentalInput struct {
	RentalID  uuid.UUID      `json:"-"`
	ActorID   uuid.UUID      `json:"-"`
	ActorRole enums.UserRole `json:"-"`
}

type IssueQRInput struct {
	RentalID uuid.UUID    `json:"-"`
	ActorID  uuid.UUID    `json:"-"`
	QRType   enums.QRType `json:"type" validate:"required"`
}

// IssuedQR is returned to the client that requests a handover code.
type IssuedQR struct {
	Token    string       `json:"token"`
	Type     enums.QRType `json:"type"`
	IssuedAt time.Time    `json:"issuedAt"`
	StaleAt  time.Time    `json:"staleAt"`
}

type RedeemQRInput struct {
	RentalID uuid.UUID `json:"-"`
	ActorID  uuid.UUID `json:"-"`
	Token    string    `json:"token" validate:"required"`
}
