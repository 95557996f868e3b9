// Package domain contains the GAPS disbursement line model. Each line is one
// bank payment instruction derived from a payment inside an approved bulk
// schedule, with the vendor's bank details snapshotted at generation time.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// GapsLineStatus tracks a line through the bank upload cycle.
type GapsLineStatus string

const (
	GapsLineStatusGenerated GapsLineStatus = "Generated"
	GapsLineStatusUploaded  GapsLineStatus = "Uploaded"
	GapsLineStatusProcessed GapsLineStatus = "Processed"
	GapsLineStatusFailed    GapsLineStatus = "Failed"
)

// ValidLineStatus reports whether st is a known GAPS line status.
func ValidLineStatus(st GapsLineStatus) bool {
	switch st {
	case GapsLineStatusGenerated, GapsLineStatusUploaded, GapsLineStatusProcessed, GapsLineStatusFailed:
		return true
	}
	return false
}

const (
	// Bank file field limits.
	MaxReferenceLen = 20
	MaxRemarkLen    = 25
)

type GapsSchedule struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	BatchNumber   string          `gorm:"type:text;not null;index" json:"batch_number"`
	PaymentAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"payment_amount"`
	PaymentDate   time.Time       `gorm:"not null" json:"payment_date"`
	Reference     string          `gorm:"type:text;not null;default:''" json:"reference"`
	Remark        string          `gorm:"type:text;not null;default:''" json:"remark"`

	VendorCode          string `gorm:"type:text;not null;default:''" json:"vendor_code"`
	VendorName          string `gorm:"type:text;not null;default:''" json:"vendor_name"`
	VendorAccountNumber string `gorm:"type:text;not null;default:''" json:"vendor_account_number"`
	VendorBankSortCode  string `gorm:"type:text;not null;default:''" json:"vendor_bank_sort_code"`
	VendorBankName      string `gorm:"type:text;not null;default:''" json:"vendor_bank_name"`

	Status          GapsLineStatus `gorm:"type:text;not null;default:'Generated'" json:"status"`
	ProcessingNotes string         `gorm:"type:text;not null;default:''" json:"processing_notes"`
	UploadedDate    *time.Time     `gorm:"" json:"uploaded_date,omitempty"`
	ProcessedDate   *time.Time     `gorm:"" json:"processed_date,omitempty"`

	BulkScheduleID  snowflake.ID `gorm:"not null" json:"bulk_schedule_id"`
	PaymentID       snowflake.ID `gorm:"not null" json:"payment_id"`
	VendorID        snowflake.ID `gorm:"not null" json:"vendor_id"`
	CreatedByUserID snowflake.ID `gorm:"not null" json:"created_by_user_id"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (GapsSchedule) TableName() string { return "gaps_schedules" }
