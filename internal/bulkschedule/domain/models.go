// Package domain contains the bulk schedule batch model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BulkScheduleStatus represents batch lifecycle states.
type BulkScheduleStatus string

const (
	BulkScheduleStatusDraft     BulkScheduleStatus = "Draft"
	BulkScheduleStatusPending   BulkScheduleStatus = "Pending"
	BulkScheduleStatusApproved  BulkScheduleStatus = "Approved"
	BulkScheduleStatusProcessed BulkScheduleStatus = "Processed"
	BulkScheduleStatusCompleted BulkScheduleStatus = "Completed"
	BulkScheduleStatusRejected  BulkScheduleStatus = "Rejected"
	BulkScheduleStatusCancelled BulkScheduleStatus = "Cancelled"
)

// ValidStatus reports whether st is a known bulk schedule status.
func ValidStatus(st BulkScheduleStatus) bool {
	switch st {
	case BulkScheduleStatusDraft, BulkScheduleStatusPending, BulkScheduleStatusApproved,
		BulkScheduleStatusProcessed, BulkScheduleStatusCompleted, BulkScheduleStatusRejected,
		BulkScheduleStatusCancelled:
		return true
	}
	return false
}

// BulkSchedule aggregates the payments created inside a date window into a
// single approval and disbursement batch. Totals are denormalized sums over
// the linked payments.
type BulkSchedule struct {
	ID               snowflake.ID       `gorm:"primaryKey" json:"id"`
	TenantID         snowflake.ID       `gorm:"not null;uniqueIndex:ux_bulk_schedules_tenant_batch" json:"tenant_id"`
	BatchNumber      string             `gorm:"type:text;not null;uniqueIndex:ux_bulk_schedules_tenant_batch" json:"batch_number"`
	Description      string             `gorm:"type:text;not null;default:''" json:"description"`
	TotalGrossAmount decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"total_gross_amount"`
	TotalVatAmount   decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"total_vat_amount"`
	TotalWhtAmount   decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"total_wht_amount"`
	TotalNetAmount   decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"total_net_amount"`
	PaymentCount     int                `gorm:"not null;default:0" json:"payment_count"`
	ScheduledDate    time.Time          `gorm:"not null" json:"scheduled_date"`
	StartDate        time.Time          `gorm:"not null" json:"start_date"`
	EndDate          time.Time          `gorm:"not null" json:"end_date"`
	Status           BulkScheduleStatus `gorm:"type:text;not null;default:'Draft'" json:"status"`
	Remarks          string             `gorm:"type:text;not null;default:''" json:"remarks"`

	CreatedByUserID   snowflake.ID  `gorm:"not null" json:"created_by_user_id"`
	ApprovedByUserID  *snowflake.ID `gorm:"" json:"approved_by_user_id,omitempty"`
	ApprovedDate      *time.Time    `gorm:"" json:"approved_date,omitempty"`
	ProcessedByUserID *snowflake.ID `gorm:"" json:"processed_by_user_id,omitempty"`
	ProcessedDate     *time.Time    `gorm:"" json:"processed_date,omitempty"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BulkSchedule) TableName() string { return "bulk_schedules" }
