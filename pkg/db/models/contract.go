package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentmoto/rentmoto-backend/pkg/enums"
)

// Contract is the agreement under which a lessor's bike can be rented.
// It supplies the pricing inputs used when a rental is created.
type Contract struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LessorID    uuid.UUID            `gorm:"column:lessor_id;type:uuid;not null;index"`
	BikeModel   string               `gorm:"column:bike_model;type:text;not null"`
	BikePlate   string               `gorm:"column:bike_plate;type:text;not null"`
	Description *string              `gorm:"column:description;type:text"`
	PricePerDay decimal.Decimal      `gorm:"column:price_per_day;type:numeric(12,2);not null"`
	ServiceFee  decimal.Decimal      `gorm:"column:service_fee;type:numeric(12,2);not null"`
	Status      enums.ContractStatus `gorm:"column:status;type:text;not null;default:'available'"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
