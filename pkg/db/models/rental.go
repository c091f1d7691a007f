package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentmoto/rentmoto-backend/pkg/enums"
)

// Rental is the central booking entity. Status transitions are applied only
// through compare-and-swap updates keyed on the expected current status, so
// two concurrent attempts cannot both succeed from the same source state.
type Rental struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID uuid.UUID `gorm:"column:contract_id;type:uuid;not null;index"`
	RenterID   uuid.UUID `gorm:"column:renter_id;type:uuid;not null;index"`
	LessorID   uuid.UUID `gorm:"column:lessor_id;type:uuid;not null;index"`

	StartDate time.Time `gorm:"column:start_date;type:timestamptz;not null"`
	EndDate   time.Time `gorm:"column:end_date;type:timestamptz;not null"`

	Status          enums.RentalStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	CancelledBy     *enums.CancelledBy  `gorm:"column:cancelled_by;type:text"`
	PaymentDeadline *time.Time          `gorm:"column:payment_deadline;type:timestamptz"`

	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`

	// Consumed handover tokens, recorded in the same update that applies the
	// matching transition so a token cannot be replayed.
	PickupTokenID *string `gorm:"column:pickup_token_id;type:text"`
	ReturnTokenID *string `gorm:"column:return_token_id;type:text"`

	ConfirmedAt *time.Time `gorm:"column:confirmed_at;type:timestamptz"`
	ActivatedAt *time.Time `gorm:"column:activated_at;type:timestamptz"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamptz"`
	CancelledAt *time.Time `gorm:"column:cancelled_at;type:timestamptz"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
