package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/novahq/nova/internal/audit/domain"
	bulkdomain "github.com/novahq/nova/internal/bulkschedule/domain"
	"github.com/novahq/nova/internal/clock"
	gapsdomain "github.com/novahq/nova/internal/gaps/domain"
	"github.com/novahq/nova/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchNumberLayout = "GAPS-20060102-150405"

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	bulkrepo repository.Repository[bulkdomain.BulkSchedule]
	linerepo repository.Repository[gapsdomain.GapsSchedule]
	auditSvc auditdomain.Service
}

func NewService(p ServiceParam) gapsdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("gaps.service"),
		genID: p.GenID,
		clock: p.Clock,

		bulkrepo: repository.ProvideStore[bulkdomain.BulkSchedule](p.DB),
		linerepo: repository.ProvideStore[gapsdomain.GapsSchedule](p.DB),
		auditSvc: p.AuditSvc,
	}
}

// sourceRow is a payment joined with its vendor and bank details, the raw
// material for one disbursement line.
type sourceRow struct {
	PaymentID     snowflake.ID    `gorm:"column:payment_id"`
	VendorID      snowflake.ID    `gorm:"column:vendor_id"`
	NetAmount     decimal.Decimal `gorm:"column:net_amount"`
	Reference     string          `gorm:"column:reference"`
	Description   string          `gorm:"column:description"`
	InvoiceNumber string          `gorm:"column:invoice_number"`
	VendorCode    string          `gorm:"column:vendor_code"`
	VendorName    string          `gorm:"column:vendor_name"`
	AccountNumber string          `gorm:"column:account_number"`
	BankSortCode  *string         `gorm:"column:bank_sort_code"`
	BankName      *string         `gorm:"column:bank_name"`
}

func (s *Service) Generate(ctx context.Context, tenantID, userID, bulkScheduleID snowflake.ID, paymentDate time.Time) (gapsdomain.GapsBatch, error) {
	batch, err := s.bulkrepo.FindOne(ctx, &bulkdomain.BulkSchedule{ID: bulkScheduleID, TenantID: tenantID})
	if err != nil {
		return gapsdomain.GapsBatch{}, err
	}
	if batch == nil {
		return gapsdomain.GapsBatch{}, bulkdomain.ErrNotFound
	}
	if batch.Status != bulkdomain.BulkScheduleStatusApproved {
		return gapsdomain.GapsBatch{}, bulkdomain.ErrNotApproved
	}

	rows, err := s.listSourceRows(ctx, tenantID, batch.ID)
	if err != nil {
		return gapsdomain.GapsBatch{}, err
	}
	if len(rows) == 0 {
		return gapsdomain.GapsBatch{}, bulkdomain.ErrNoPayments
	}

	now := s.clock.Now()
	batchNumber := now.Format(batchNumberLayout)

	lines := make([]gapsdomain.GapsSchedule, 0, len(rows))
	total := decimal.Zero
	for _, row := range rows {
		// A vendor without bank routing details cannot receive a transfer;
		// the payment stays in the bulk schedule for manual handling.
		if row.BankSortCode == nil || strings.TrimSpace(*row.BankSortCode) == "" {
			s.log.Warn("skipping payment without bank sort code",
				zap.Int64("payment_id", row.PaymentID.Int64()),
				zap.String("vendor_code", row.VendorCode),
			)
			continue
		}

		bankName := ""
		if row.BankName != nil {
			bankName = *row.BankName
		}

		reference := strings.TrimSpace(row.Reference)
		if reference == "" {
			reference = row.InvoiceNumber
		}

		lines = append(lines, gapsdomain.GapsSchedule{
			ID:            s.genID.Generate(),
			TenantID:      tenantID,
			BatchNumber:   batchNumber,
			PaymentAmount: row.NetAmount,
			PaymentDate:   paymentDate,
			Reference:     truncate(reference, gapsdomain.MaxReferenceLen),
			Remark:        truncate(row.Description, gapsdomain.MaxRemarkLen),

			VendorCode:          row.VendorCode,
			VendorName:          row.VendorName,
			VendorAccountNumber: row.AccountNumber,
			VendorBankSortCode:  *row.BankSortCode,
			VendorBankName:      bankName,

			Status:          gapsdomain.GapsLineStatusGenerated,
			BulkScheduleID:  batch.ID,
			PaymentID:       row.PaymentID,
			VendorID:        row.VendorID,
			CreatedByUserID: userID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		total = total.Add(row.NetAmount)
	}
	if len(lines) == 0 {
		return gapsdomain.GapsBatch{}, gapsdomain.ErrNoEligiblePayments
	}

	if err := s.db.WithContext(ctx).Create(&lines).Error; err != nil {
		return gapsdomain.GapsBatch{}, err
	}

	s.emitAudit(ctx, tenantID, userID, "gaps_schedule.generated", batchNumber, map[string]any{
		"bulk_schedule_id": batch.ID.String(),
		"line_count":       len(lines),
		"total_amount":     total.String(),
	})

	return gapsdomain.GapsBatch{
		BatchNumber: batchNumber,
		TotalAmount: total,
		LineCount:   len(lines),
		GeneratedAt: now,
	}, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]gapsdomain.GapsBatch, error) {
	var batches []gapsdomain.GapsBatch
	err := s.db.WithContext(ctx).
		Table("gaps_schedules").
		Select("batch_number, SUM(payment_amount) AS total_amount, COUNT(*) AS line_count").
		Where("tenant_id = ?", tenantID).
		Group("batch_number").
		Order("batch_number DESC").
		Scan(&batches).Error
	if err != nil {
		return nil, err
	}

	// The batch number encodes the generation timestamp; sorting and
	// parsing it avoids dialect-specific scanning of aggregated columns.
	for i := range batches {
		if ts, err := time.Parse(batchNumberLayout, batches[i].BatchNumber); err == nil {
			batches[i].GeneratedAt = ts
		}
	}
	return batches, nil
}

func (s *Service) GetByBatchNumber(ctx context.Context, tenantID snowflake.ID, batchNumber string) ([]gapsdomain.GapsSchedule, error) {
	items, err := s.linerepo.Find(ctx, &gapsdomain.GapsSchedule{TenantID: tenantID, BatchNumber: batchNumber})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, gapsdomain.ErrNotFound
	}

	lines := make([]gapsdomain.GapsSchedule, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		lines = append(lines, *item)
	}
	return lines, nil
}

func (s *Service) listSourceRows(ctx context.Context, tenantID, batchID snowflake.ID) ([]sourceRow, error) {
	var rows []sourceRow
	err := s.db.WithContext(ctx).
		Table("payments").
		Select("payments.id AS payment_id, vendors.id AS vendor_id, payments.net_amount, "+
			"payments.reference, payments.description, payments.invoice_number, "+
			"vendors.code AS vendor_code, vendors.name AS vendor_name, vendors.account_number, "+
			"banks.sort_code AS bank_sort_code, banks.name AS bank_name").
		Joins("JOIN vendors ON vendors.id = payments.vendor_id").
		Joins("LEFT JOIN banks ON banks.id = vendors.bank_id").
		Where("payments.tenant_id = ? AND payments.bulk_schedule_id = ?", tenantID, batchID).
		Order("vendors.name ASC, payments.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

func (s *Service) emitAudit(ctx context.Context, tenantID, actorID snowflake.ID, action, batchNumber string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, &tenantID, &actorID, action, "gaps_schedule", &batchNumber, metadata)
}

func truncate(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max])
}
