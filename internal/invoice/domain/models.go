// Package domain contains persistence models for synced invoices.
package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Statuses mirror the payment processor's invoice states, upper-cased.
const (
	StatusDraft         = "DRAFT"
	StatusOpen          = "OPEN"
	StatusPaid          = "PAID"
	StatusVoid          = "VOID"
	StatusUncollectible = "UNCOLLECTIBLE"
)

var (
	ErrMalformedItems = errors.New("invoice_items_malformed")
)

// Invoice is a billing-period record mirroring the processor's invoice.
// Rows are created and updated only through invoice sync; at most one
// row exists per provider reference.
type Invoice struct {
	ID                snowflake.ID   `gorm:"primaryKey"`
	SubscriptionID    snowflake.ID   `gorm:"not null;index"`
	ProviderInvoiceID string         `gorm:"type:text;not null;uniqueIndex"`
	AmountCents       int64          `gorm:"not null"`
	Status            string         `gorm:"type:text;not null"`
	DueAt             *time.Time     `gorm:""`
	PaidAt            *time.Time     `gorm:"index"`
	PeriodStart       time.Time      `gorm:"not null"`
	PeriodEnd         time.Time      `gorm:"not null;index"`
	ProrationCents    *int64         `gorm:""`
	Items             datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Line is one invoice line inside the items payload.
type Line struct {
	Description string     `json:"description"`
	AmountCents int64      `json:"amountCents"`
	Quantity    int64      `json:"quantity"`
	PeriodStart *time.Time `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time `json:"periodEnd,omitempty"`
}

// ScheduledTierChange is the deferred plan move embedded in a paid
// invoice's items payload. The processed flag guards idempotent
// re-application by the tier-change sweep.
type ScheduledTierChange struct {
	NewTierID      string     `json:"newTierId"`
	NewAmountCents int64      `json:"newAmountCents"`
	Processed      bool       `json:"processed"`
	ProcessedAt    *time.Time `json:"processedAt,omitempty"`
}

// ItemsPayload is the structured form of the Items column.
type ItemsPayload struct {
	Lines               []Line               `json:"lines,omitempty"`
	ScheduledTierChange *ScheduledTierChange `json:"scheduledTierChange,omitempty"`
}

// DecodeItems parses the items payload. An empty column decodes to the
// zero payload; malformed JSON is a contract violation.
func (i *Invoice) DecodeItems() (ItemsPayload, error) {
	var payload ItemsPayload
	if len(i.Items) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(i.Items, &payload); err != nil {
		return payload, ErrMalformedItems
	}
	return payload, nil
}

// EncodeItems serializes the payload back into the Items column.
func (i *Invoice) EncodeItems(payload ItemsPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	i.Items = datatypes.JSON(raw)
	return nil
}
