package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/novahq/nova/internal/payment/domain"
)

type GenerateBulkScheduleRequest struct {
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Description string    `json:"description"`
	Remarks     string    `json:"remarks"`
}

type UpdateBulkScheduleStatusRequest struct {
	Status  BulkScheduleStatus `json:"status"`
	Remarks *string            `json:"remarks,omitempty"`
}

// BulkScheduleDetail is a batch together with its linked payments, ordered
// by vendor name then creation time.
type BulkScheduleDetail struct {
	BulkSchedule
	Payments []paymentdomain.Payment `json:"payments"`
}

// ExportFile is an in-memory export artifact; delivery is the caller's
// concern.
type ExportFile struct {
	Content     []byte `json:"-"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type Service interface {
	Generate(ctx context.Context, tenantID, userID snowflake.ID, req GenerateBulkScheduleRequest) (BulkScheduleDetail, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]BulkSchedule, error)
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (BulkScheduleDetail, error)
	Approve(ctx context.Context, tenantID, userID, id snowflake.ID, remarks *string) error
	UpdateStatus(ctx context.Context, tenantID, userID, id snowflake.ID, req UpdateBulkScheduleStatusRequest) error
	Delete(ctx context.Context, tenantID, id snowflake.ID) error
	ExportCSV(ctx context.Context, tenantID, id snowflake.ID) (ExportFile, error)
}

var (
	ErrNotFound         = errors.New("bulk_schedule_not_found")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrNoPayments       = errors.New("no_payments_in_range")
	ErrInvalidStatus    = errors.New("invalid_bulk_schedule_status")
	ErrNotPending       = errors.New("bulk_schedule_not_pending")
	ErrNotDraft         = errors.New("bulk_schedule_not_draft")
	ErrNotApproved      = errors.New("bulk_schedule_not_approved")
)
