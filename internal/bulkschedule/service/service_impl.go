package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/novahq/nova/internal/audit/domain"
	bulkdomain "github.com/novahq/nova/internal/bulkschedule/domain"
	"github.com/novahq/nova/internal/clock"
	paymentdomain "github.com/novahq/nova/internal/payment/domain"
	"github.com/novahq/nova/pkg/db"
	"github.com/novahq/nova/pkg/db/option"
	"github.com/novahq/nova/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var forUpdateClause = clause.Locking{Strength: "UPDATE"}

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
	auditSvc auditdomain.Service
}

func NewService(p ServiceParam) bulkdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("bulkschedule.service"),
		genID: p.GenID,
		clock: p.Clock,

		bulkrepo: repository.ProvideStore[bulkdomain.BulkSchedule](p.DB),
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Generate(ctx context.Context, tenantID, userID snowflake.ID, req bulkdomain.GenerateBulkScheduleRequest) (bulkdomain.BulkScheduleDetail, error) {
	if req.StartDate.After(req.EndDate) {
		return bulkdomain.BulkScheduleDetail{}, bulkdomain.ErrInvalidDateRange
	}

	windowStart := startOfDay(req.StartDate)
	windowEnd := endOfDay(req.EndDate)

	var detail bulkdomain.BulkScheduleDetail
	run := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			payments, err := s.listPaymentsInWindow(ctx, tx, tenantID, windowStart, windowEnd)
			if err != nil {
				return err
			}
			if len(payments) == 0 {
				return bulkdomain.ErrNoPayments
			}

			totalGross, totalVat, totalWht, totalNet := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
			for _, p := range payments {
				totalGross = totalGross.Add(p.GrossAmount)
				totalVat = totalVat.Add(p.VatAmount)
				totalWht = totalWht.Add(p.WhtAmount)
				totalNet = totalNet.Add(p.NetAmount)
			}

			batchNumber, err := s.nextBatchNumber(ctx, tx, tenantID)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			description := req.Description
			if description == "" {
				description = fmt.Sprintf("Bulk Schedule - Payments from %s to %s",
					req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
			}

			batch := bulkdomain.BulkSchedule{
				ID:               s.genID.Generate(),
				TenantID:         tenantID,
				BatchNumber:      batchNumber,
				Description:      description,
				TotalGrossAmount: totalGross,
				TotalVatAmount:   totalVat,
				TotalWhtAmount:   totalWht,
				TotalNetAmount:   totalNet,
				PaymentCount:     len(payments),
				ScheduledDate:    now,
				StartDate:        windowStart,
				EndDate:          windowEnd,
				Status:           bulkdomain.BulkScheduleStatusPending,
				Remarks:          req.Remarks,
				CreatedByUserID:  userID,
				CreatedAt:        now,
				UpdatedAt:        now,
			}

			// The batch row must exist before payments can reference it.
			if err := tx.WithContext(ctx).Create(&batch).Error; err != nil {
				return err
			}

			ids := make([]snowflake.ID, 0, len(payments))
			for _, p := range payments {
				ids = append(ids, p.ID)
			}
			if err := tx.WithContext(ctx).Model(&paymentdomain.Payment{}).
				Where("id IN ?", ids).
				Updates(map[string]any{
					"bulk_schedule_id": batch.ID,
					"updated_at":       now,
				}).Error; err != nil {
				return err
			}

			for i := range payments {
				payments[i].BulkScheduleID = &batch.ID
			}
			detail = bulkdomain.BulkScheduleDetail{BulkSchedule: batch, Payments: payments}
			return nil
		})
	}

	err := run()
	if db.IsDuplicateKeyErr(err) {
		// A concurrent caller claimed the same batch number; allocate again.
		err = run()
	}
	if err != nil {
		return bulkdomain.BulkScheduleDetail{}, err
	}

	s.emitAudit(ctx, tenantID, userID, "bulk_schedule.generated", &detail.BulkSchedule, nil)
	return detail, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]bulkdomain.BulkSchedule, error) {
	items, err := s.bulkrepo.Find(ctx, &bulkdomain.BulkSchedule{TenantID: tenantID},
		option.WithOrder("created_at DESC"))
	if err != nil {
		return nil, err
	}

	batches := make([]bulkdomain.BulkSchedule, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		batches = append(batches, *item)
	}
	return batches, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (bulkdomain.BulkScheduleDetail, error) {
	batch, err := s.findBatch(ctx, tenantID, id)
	if err != nil {
		return bulkdomain.BulkScheduleDetail{}, err
	}

	payments, err := s.listLinkedPayments(ctx, s.db, tenantID, id)
	if err != nil {
		return bulkdomain.BulkScheduleDetail{}, err
	}

	return bulkdomain.BulkScheduleDetail{BulkSchedule: batch, Payments: payments}, nil
}

func (s *Service) Approve(ctx context.Context, tenantID, userID, id snowflake.ID, remarks *string) error {
	var approved *bulkdomain.BulkSchedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.loadBatchForUpdate(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if batch == nil {
			return bulkdomain.ErrNotFound
		}
		if !strings.EqualFold(string(batch.Status), string(bulkdomain.BulkScheduleStatusPending)) {
			return bulkdomain.ErrNotPending
		}

		now := s.clock.Now()
		updates := map[string]any{
			"status":              bulkdomain.BulkScheduleStatusApproved,
			"approved_by_user_id": userID,
			"approved_date":       now,
			"updated_at":          now,
		}
		if remarks != nil {
			updates["remarks"] = *remarks
		}
		if err := tx.WithContext(ctx).Model(&bulkdomain.BulkSchedule{}).
			Where("id = ?", batch.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		// Approval moves every linked payment into the scheduled state.
		if err := tx.WithContext(ctx).Model(&paymentdomain.Payment{}).
			Where("bulk_schedule_id = ?", batch.ID).
			Updates(map[string]any{
				"status":     paymentdomain.PaymentStatusScheduled,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		approved = batch
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, tenantID, userID, "bulk_schedule.approved", approved, nil)
	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, tenantID, userID, id snowflake.ID, req bulkdomain.UpdateBulkScheduleStatusRequest) error {
	if !bulkdomain.ValidStatus(req.Status) {
		return bulkdomain.ErrInvalidStatus
	}

	batch, err := s.findBatch(ctx, tenantID, id)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	updates := map[string]any{
		"status":     req.Status,
		"updated_at": now,
	}
	if req.Remarks != nil {
		updates["remarks"] = *req.Remarks
	}
	if req.Status == bulkdomain.BulkScheduleStatusProcessed && batch.ProcessedDate == nil {
		updates["processed_date"] = now
		updates["processed_by_user_id"] = userID
	}

	if err := s.db.WithContext(ctx).Model(&bulkdomain.BulkSchedule{}).
		Where("id = ?", batch.ID).
		Updates(updates).Error; err != nil {
		return err
	}

	s.emitAudit(ctx, tenantID, userID, "bulk_schedule.status_updated", &batch, map[string]any{
		"previous_status": string(batch.Status),
		"new_status":      string(req.Status),
	})
	return nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id snowflake.ID) error {
	var deleted *bulkdomain.BulkSchedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.loadBatchForUpdate(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if batch == nil {
			return bulkdomain.ErrNotFound
		}
		if batch.Status != bulkdomain.BulkScheduleStatusDraft {
			return bulkdomain.ErrNotDraft
		}

		// Unlink payments before the batch row disappears.
		if err := tx.WithContext(ctx).Model(&paymentdomain.Payment{}).
			Where("bulk_schedule_id = ?", batch.ID).
			Updates(map[string]any{
				"bulk_schedule_id": nil,
				"updated_at":       s.clock.Now(),
			}).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Delete(&bulkdomain.BulkSchedule{}, "id = ?", batch.ID).Error; err != nil {
			return err
		}

		deleted = batch
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, tenantID, deleted.CreatedByUserID, "bulk_schedule.deleted", deleted, nil)
	return nil
}

func (s *Service) findBatch(ctx context.Context, tenantID, id snowflake.ID) (bulkdomain.BulkSchedule, error) {
	item, err := s.bulkrepo.FindOne(ctx, &bulkdomain.BulkSchedule{ID: id, TenantID: tenantID})
	if err != nil {
		return bulkdomain.BulkSchedule{}, err
	}
	if item == nil {
		return bulkdomain.BulkSchedule{}, bulkdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) loadBatchForUpdate(ctx context.Context, tx *gorm.DB, tenantID, id snowflake.ID) (*bulkdomain.BulkSchedule, error) {
	stmt := tx.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID)
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(forUpdateClause)
	}

	var batch bulkdomain.BulkSchedule
	err := stmt.First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (s *Service) listPaymentsInWindow(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, from, to time.Time) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := tx.WithContext(ctx).
		Select("payments.*").
		Joins("JOIN vendors ON vendors.id = payments.vendor_id").
		Where("payments.tenant_id = ? AND payments.created_at >= ? AND payments.created_at <= ?", tenantID, from, to).
		Order("vendors.name ASC, payments.created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (s *Service) listLinkedPayments(ctx context.Context, tx *gorm.DB, tenantID, batchID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := tx.WithContext(ctx).
		Select("payments.*").
		Joins("JOIN vendors ON vendors.id = payments.vendor_id").
		Where("payments.tenant_id = ? AND payments.bulk_schedule_id = ?", tenantID, batchID).
		Order("vendors.name ASC, payments.created_at ASC").
		Find(&payments).Error
	return payments, err
}

// nextBatchNumber allocates the next BS{yyyyMMdd}{seq:3} identifier for the
// tenant. The caller's transaction plus the unique index on batch_number
// close the read-then-write race; Generate retries once on collision.
func (s *Service) nextBatchNumber(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (string, error) {
	prefix := "BS" + s.clock.Now().Format("20060102")

	// The sequence suffix grows past three digits, so order by length
	// before value to keep e.g. 1000 above 999.
	stmt := tx.WithContext(ctx).Model(&bulkdomain.BulkSchedule{}).
		Where("tenant_id = ? AND batch_number LIKE ?", tenantID, prefix+"%").
		Order("LENGTH(batch_number) DESC, batch_number DESC").
		Limit(1)
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(forUpdateClause)
	}

	var numbers []string
	if err := stmt.Pluck("batch_number", &numbers).Error; err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return prefix + "001", nil
	}

	seq, err := strconv.Atoi(strings.TrimPrefix(numbers[0], prefix))
	if err != nil {
		return prefix + "001", nil
	}
	return fmt.Sprintf("%s%03d", prefix, seq+1), nil
}

func (s *Service) emitAudit(ctx context.Context, tenantID, actorID snowflake.ID, action string, batch *bulkdomain.BulkSchedule, extra map[string]any) {
	if s.auditSvc == nil || batch == nil {
		return
	}
	metadata := map[string]any{
		"batch_number":     batch.BatchNumber,
		"payment_count":    batch.PaymentCount,
		"total_net_amount": batch.TotalNetAmount.String(),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := batch.ID.String()
	_ = s.auditSvc.AuditLog(ctx, &tenantID, &actorID, action, "bulk_schedule", &targetID, metadata)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
