package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/novahq/nova/internal/audit/domain"
	paymentdomain "github.com/novahq/nova/internal/payment/domain"
	vendordomain "github.com/novahq/nova/internal/vendors/domain"
	"github.com/novahq/nova/pkg/db"
	"github.com/novahq/nova/pkg/db/option"
	"github.com/novahq/nova/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	percentageTolerance = decimal.RequireFromString("0.01")
	forUpdateClause     = clause.Locking{Strength: "UPDATE"}
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	VendorSvc vendordomain.Service
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	paymentrepo repository.Repository[paymentdomain.Payment]
	vendorSvc   vendordomain.Service
	auditSvc    auditdomain.Service
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,

		paymentrepo: repository.ProvideStore[paymentdomain.Payment](p.DB),
		vendorSvc:   p.VendorSvc,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, tenantID, userID snowflake.ID, req paymentdomain.CreatePaymentRequest) (paymentdomain.Payment, error) {
	if strings.TrimSpace(req.InvoiceNumber) == "" {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidInvoiceNumber
	}
	if !req.GrossAmount.IsPositive() {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidAmount
	}

	vendor, err := s.vendorSvc.GetByID(ctx, tenantID, req.VendorID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	var created paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment paymentdomain.Payment
		var txErr error

		if req.IsPartialPayment {
			payment, txErr = s.buildPartialPayment(ctx, tx, tenantID, userID, vendor, req)
		} else {
			payment, txErr = s.buildFullPayment(ctx, tx, tenantID, userID, vendor, req)
		}
		if txErr != nil {
			return txErr
		}

		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return paymentdomain.ErrDuplicateInvoiceNumber
			}
			return err
		}

		created = payment
		return nil
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	s.emitAudit(ctx, tenantID, userID, "payment.created", &created, nil)
	return created, nil
}

func (s *Service) buildFullPayment(ctx context.Context, tx *gorm.DB, tenantID, userID snowflake.ID, vendor vendordomain.Vendor, req paymentdomain.CreatePaymentRequest) (paymentdomain.Payment, error) {
	if err := s.ensureInvoiceNumberFree(ctx, tx, tenantID, req.InvoiceNumber); err != nil {
		return paymentdomain.Payment{}, err
	}

	payment := s.newPayment(tenantID, userID, vendor, req)
	payment.InvoiceNumber = req.InvoiceNumber
	payment.GrossAmount = req.GrossAmount
	payment.OriginalInvoiceAmount = req.GrossAmount
	payment.PaymentAmount = req.GrossAmount
	payment.TotalAmountPaid = req.GrossAmount
	payment.TaxableAmount = req.GrossAmount
	if req.TaxableAmount != nil {
		payment.TaxableAmount = *req.TaxableAmount
	}
	payment.CalculateAmounts()
	return payment, nil
}

func (s *Service) buildPartialPayment(ctx context.Context, tx *gorm.DB, tenantID, userID snowflake.ID, vendor vendordomain.Vendor, req paymentdomain.CreatePaymentRequest) (paymentdomain.Payment, error) {
	pct := req.PartialPercentage
	if !pct.IsPositive() || pct.GreaterThanOrEqual(oneHundred) {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidPercentage
	}

	if !req.IsFinalPayment {
		return s.buildFirstPartialPayment(ctx, tx, tenantID, userID, vendor, req)
	}
	return s.buildFinalPayment(ctx, tx, tenantID, userID, vendor, req)
}

func (s *Service) buildFirstPartialPayment(ctx context.Context, tx *gorm.DB, tenantID, userID snowflake.ID, vendor vendordomain.Vendor, req paymentdomain.CreatePaymentRequest) (paymentdomain.Payment, error) {
	pct := req.PartialPercentage
	if !pct.Equal(decimal.NewFromInt(50)) && !pct.Equal(decimal.NewFromInt(70)) {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidFirstPercentage
	}

	if err := s.ensureInvoiceNumberFree(ctx, tx, tenantID, req.InvoiceNumber); err != nil {
		return paymentdomain.Payment{}, err
	}

	payment := s.newPayment(tenantID, userID, vendor, req)
	payment.InvoiceNumber = req.InvoiceNumber
	payment.SetAsFirstPartialPayment(req.GrossAmount, pct)
	payment.TaxableAmount = req.GrossAmount
	if req.TaxableAmount != nil {
		payment.TaxableAmount = *req.TaxableAmount
	}
	payment.CalculateAmounts()
	return payment, nil
}

func (s *Service) buildFinalPayment(ctx context.Context, tx *gorm.DB, tenantID, userID snowflake.ID, vendor vendordomain.Vendor, req paymentdomain.CreatePaymentRequest) (paymentdomain.Payment, error) {
	if req.FirstPaymentID == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrFirstPaymentRequired
	}

	first, err := s.loadPaymentForUpdate(ctx, tx, tenantID, *req.FirstPaymentID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if first == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrFirstPaymentNotFound
	}
	if first.IsFinalPayment {
		return paymentdomain.Payment{}, paymentdomain.ErrAlreadyFinal
	}
	// A settled first stage already has its final tranche.
	if !first.RemainingBalance().IsPositive() {
		return paymentdomain.Payment{}, paymentdomain.ErrAlreadyFinal
	}

	expected := oneHundred.Sub(first.PaymentAmount.Div(first.OriginalInvoiceAmount).Mul(oneHundred))
	if req.PartialPercentage.Sub(expected).Abs().GreaterThan(percentageTolerance) {
		return paymentdomain.Payment{}, paymentdomain.ErrPercentageMismatch
	}

	payment := s.newPayment(tenantID, userID, vendor, req)
	payment.InvoiceNumber = req.InvoiceNumber + "-FINAL"
	payment.ParentPaymentID = &first.ID
	payment.SetAsFinalPayment(first.OriginalInvoiceAmount, first.PaymentAmount)
	// Tax is owed against the original invoice's base, not this tranche.
	payment.TaxableAmount = first.TaxableAmount
	payment.CalculateAmounts()

	// The final tranche discharges the invoice; settle the first stage.
	if err := tx.WithContext(ctx).Model(&paymentdomain.Payment{}).
		Where("id = ?", first.ID).
		Updates(map[string]any{
			"total_amount_paid": first.OriginalInvoiceAmount,
			"updated_at":        time.Now().UTC(),
		}).Error; err != nil {
		return paymentdomain.Payment{}, err
	}

	return payment, nil
}

func (s *Service) newPayment(tenantID, userID snowflake.ID, vendor vendordomain.Vendor, req paymentdomain.CreatePaymentRequest) paymentdomain.Payment {
	now := time.Now().UTC()
	return paymentdomain.Payment{
		ID:              s.genID.Generate(),
		TenantID:        tenantID,
		VendorID:        vendor.ID,
		Description:     req.Description,
		Reference:       req.Reference,
		Remarks:         req.Remarks,
		InvoiceDate:     req.InvoiceDate.UTC(),
		DueDate:         req.DueDate,
		Status:          paymentdomain.PaymentStatusPending,
		AppliedTaxType:  vendor.TaxType,
		AppliedVatRate:  vendor.VatRate,
		AppliedWhtRate:  vendor.WhtRate,
		CreatedByUserID: userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]paymentdomain.Payment, error) {
	items, err := s.paymentrepo.Find(ctx, &paymentdomain.Payment{TenantID: tenantID},
		option.WithOrder("created_at DESC"))
	if err != nil {
		return nil, err
	}

	payments := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return payments, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (paymentdomain.Payment, error) {
	item, err := s.paymentrepo.FindOne(ctx, &paymentdomain.Payment{ID: id, TenantID: tenantID})
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if item == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) UpdateStatus(ctx context.Context, tenantID, userID, id snowflake.ID, req paymentdomain.UpdatePaymentStatusRequest) error {
	if !paymentdomain.ValidTransitionStatus(req.Status) {
		return paymentdomain.ErrInvalidStatus
	}

	payment, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"status":     req.Status,
		"updated_at": time.Now().UTC(),
	}
	if req.Remarks != nil {
		updates["remarks"] = *req.Remarks
	}
	if req.PaymentDate != nil {
		updates["payment_date"] = req.PaymentDate.UTC()
	}

	if err := s.db.WithContext(ctx).Model(&paymentdomain.Payment{}).
		Where("id = ?", payment.ID).
		Updates(updates).Error; err != nil {
		return err
	}

	s.emitAudit(ctx, tenantID, userID, "payment.status_updated", &payment, map[string]any{
		"previous_status": string(payment.Status),
		"new_status":      string(req.Status),
	})
	return nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id snowflake.ID) error {
	payment, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if payment.Status != paymentdomain.PaymentStatusPending {
		return paymentdomain.ErrNotPending
	}

	if err := s.paymentrepo.Delete(ctx, payment.ID.String()); err != nil {
		return err
	}

	s.emitAudit(ctx, tenantID, payment.CreatedByUserID, "payment.deleted", &payment, nil)
	return nil
}

func (s *Service) ensureInvoiceNumberFree(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, invoiceNumber string) error {
	var existingID snowflake.ID
	err := tx.WithContext(ctx).Raw(
		`SELECT id
		 FROM payments
		 WHERE tenant_id = ? AND LOWER(invoice_number) = LOWER(?)
		 LIMIT 1`,
		tenantID,
		invoiceNumber,
	).Scan(&existingID).Error
	if err != nil {
		return err
	}
	if existingID != 0 {
		return paymentdomain.ErrDuplicateInvoiceNumber
	}
	return nil
}

func (s *Service) loadPaymentForUpdate(ctx context.Context, tx *gorm.DB, tenantID, id snowflake.ID) (*paymentdomain.Payment, error) {
	stmt := tx.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID)
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(forUpdateClause)
	}

	var payment paymentdomain.Payment
	err := stmt.First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (s *Service) emitAudit(ctx context.Context, tenantID, actorID snowflake.ID, action string, payment *paymentdomain.Payment, extra map[string]any) {
	if s.auditSvc == nil || payment == nil {
		return
	}
	metadata := map[string]any{
		"invoice_number": payment.InvoiceNumber,
		"vendor_id":      payment.VendorID.String(),
		"gross_amount":   payment.GrossAmount.String(),
		"net_amount":     payment.NetAmount.String(),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := payment.ID.String()
	_ = s.auditSvc.AuditLog(ctx, &tenantID, &actorID, action, "payment", &targetID, metadata)
}

var oneHundred = decimal.NewFromInt(100)
