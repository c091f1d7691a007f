package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentmoto/rentmoto-backend/pkg/enums"
)

// PaymentTransaction is the audit record for every gateway callback received,
// successful or not.
type PaymentTransaction struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RentalID   uuid.UUID             `gorm:"column:rental_id;type:uuid;not null;index"`
	Provider   enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	TransID    string                `gorm:"column:trans_id;type:text;not null;uniqueIndex:idx_payment_provider_trans"`
	Amount     decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	ResultCode string                `gorm:"column:result_code;type:text;not null"`
	Succeeded  bool                  `gorm:"column:succeeded;not null"`
	Note       *string               `gorm:"column:note;type:text"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}
