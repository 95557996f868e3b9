package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	bulkdomain "github.com/novahq/nova/internal/bulkschedule/domain"
	"github.com/shopspring/decimal"
)

// GapsBatch is the per-batch summary view, one row per generated batch.
type GapsBatch struct {
	BatchNumber string          `gorm:"column:batch_number" json:"batch_number"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount" json:"total_amount"`
	LineCount   int             `gorm:"column:line_count" json:"line_count"`
	GeneratedAt time.Time       `gorm:"column:generated_at" json:"generated_at"`
}

type Service interface {
	Generate(ctx context.Context, tenantID, userID, bulkScheduleID snowflake.ID, paymentDate time.Time) (GapsBatch, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]GapsBatch, error)
	GetByBatchNumber(ctx context.Context, tenantID snowflake.ID, batchNumber string) ([]GapsSchedule, error)
	ExportWorkbook(ctx context.Context, tenantID snowflake.ID, batchNumber string) (bulkdomain.ExportFile, error)
}

var (
	ErrNotFound           = errors.New("gaps_batch_not_found")
	ErrNoEligiblePayments = errors.New("no_eligible_gaps_payments")
	ErrInvalidLineStatus  = errors.New("invalid_gaps_line_status")
)
