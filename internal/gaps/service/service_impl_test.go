package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	bankdomain "github.com/novahq/nova/internal/bank/domain"
	bulkdomain "github.com/novahq/nova/internal/bulkschedule/domain"
	bulkservice "github.com/novahq/nova/internal/bulkschedule/service"
	"github.com/novahq/nova/internal/clock"
	gapsdomain "github.com/novahq/nova/internal/gaps/domain"
	paymentdomain "github.com/novahq/nova/internal/payment/domain"
	paymentservice "github.com/novahq/nova/internal/payment/service"
	vendordomain "github.com/novahq/nova/internal/vendors/domain"
	vendorservice "github.com/novahq/nova/internal/vendors/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type gapsFixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	clk        *clock.FakeClock
	gapsSvc    gapsdomain.Service
	bulkSvc    bulkdomain.Service
	paymentSvc paymentdomain.Service
	vendorSvc  vendordomain.Service
	tenantID   snowflake.ID
	userID     snowflake.ID
}

func setupGapsFixture(t *testing.T) *gapsFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&bankdomain.Bank{},
		&vendordomain.Vendor{},
		&paymentdomain.Payment{},
		&bulkdomain.BulkSchedule{},
		&gapsdomain.GapsSchedule{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))

	vendorSvc := vendorservice.NewService(vendorservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
	})
	paymentSvc := paymentservice.NewService(paymentservice.ServiceParam{
		DB:        db,
		Log:       logger,
		GenID:     node,
		VendorSvc: vendorSvc,
	})
	bulkSvc := bulkservice.NewService(bulkservice.ServiceParam{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: clk,
	})
	gapsSvc := NewService(ServiceParam{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: clk,
	})

	return &gapsFixture{
		db:         db,
		node:       node,
		clk:        clk,
		gapsSvc:    gapsSvc,
		bulkSvc:    bulkSvc,
		paymentSvc: paymentSvc,
		vendorSvc:  vendorSvc,
		tenantID:   node.Generate(),
		userID:     node.Generate(),
	}
}

func (f *gapsFixture) createBank(t *testing.T, name, code, sortCode string) bankdomain.Bank {
	t.Helper()
	bank := bankdomain.Bank{
		ID:       f.node.Generate(),
		TenantID: f.tenantID,
		Name:     name,
		Code:     code,
		SortCode: sortCode,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&bank).Error)
	return bank
}

func (f *gapsFixture) createVendor(t *testing.T, name, code string, bankID *snowflake.ID) vendordomain.Vendor {
	t.Helper()
	vendor, err := f.vendorSvc.Create(context.Background(), f.tenantID, vendordomain.CreateVendorRequest{
		Name:          name,
		Code:          code,
		AccountNumber: "0123456789",
		TaxType:       vendordomain.TaxTypeBoth,
		BankID:        bankID,
	})
	require.NoError(t, err)
	return vendor
}

func (f *gapsFixture) createPayment(t *testing.T, vendorID snowflake.ID, invoice, gross, description string) paymentdomain.Payment {
	t.Helper()
	payment, err := f.paymentSvc.Create(context.Background(), f.tenantID, f.userID, paymentdomain.CreatePaymentRequest{
		VendorID:      vendorID,
		InvoiceNumber: invoice,
		GrossAmount:   dec(gross),
		Description:   description,
	})
	require.NoError(t, err)
	return payment
}

func (f *gapsFixture) approvedBatch(t *testing.T) bulkdomain.BulkScheduleDetail {
	t.Helper()
	now := time.Now().UTC()
	detail, err := f.bulkSvc.Generate(context.Background(), f.tenantID, f.userID, bulkdomain.GenerateBulkScheduleRequest{
		StartDate: now,
		EndDate:   now,
	})
	require.NoError(t, err)
	require.NoError(t, f.bulkSvc.Approve(context.Background(), f.tenantID, f.userID, detail.ID, nil))
	return detail
}

func (f *gapsFixture) countLines(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&gapsdomain.GapsSchedule{}).Count(&count).Error)
	return count
}

func TestGenerateGapsSchedule(t *testing.T) {
	f := setupGapsFixture(t)
	ctx := context.Background()

	bank := f.createBank(t, "First Bank", "011", "011151003")
	vendor := f.createVendor(t, "Acme Supplies", "ACME", &bank.ID)
	f.createPayment(t, vendor.ID, "INV-001", "1000", "January stationery restock, HQ")
	batch := f.approvedBatch(t)

	paymentDate := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	result, err := f.gapsSvc.Generate(ctx, f.tenantID, f.userID, batch.ID, paymentDate)
	require.NoError(t, err)

	assert.Equal(t, "GAPS-20250101-100000", result.BatchNumber)
	assert.Equal(t, 1, result.LineCount)
	assert.True(t, result.TotalAmount.Equal(dec("905.00")), "total = %s", result.TotalAmount)

	lines, err := f.gapsSvc.GetByBatchNumber(ctx, f.tenantID, result.BatchNumber)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.True(t, line.PaymentAmount.Equal(dec("905.00")))
	assert.True(t, line.PaymentDate.UTC().Equal(paymentDate))
	assert.Equal(t, "INV-001", line.Reference)
	assert.Equal(t, "January stationery restoc", line.Remark)
	assert.LessOrEqual(t, len(line.Remark), gapsdomain.MaxRemarkLen)
	assert.Equal(t, "ACME", line.VendorCode)
	assert.Equal(t, "Acme Supplies", line.VendorName)
	assert.Equal(t, "0123456789", line.VendorAccountNumber)
	assert.Equal(t, "011151003", line.VendorBankSortCode)
	assert.Equal(t, "First Bank", line.VendorBankName)
	assert.Equal(t, gapsdomain.GapsLineStatusGenerated, line.Status)
}

func TestGenerateGapsRequiresApprovedBatch(t *testing.T) {
	f := setupGapsFixture(t)
	ctx := context.Background()

	bank := f.createBank(t, "First Bank", "011", "011151003")
	vendor := f.createVendor(t, "Acme Supplies", "ACME", &bank.ID)
	f.createPayment(t, vendor.ID, "INV-001", "1000", "")

	now := time.Now().UTC()
	detail, err := f.bulkSvc.Generate(ctx, f.tenantID, f.userID, bulkdomain.GenerateBulkScheduleRequest{
		StartDate: now,
		EndDate:   now,
	})
	require.NoError(t, err)

	_, err = f.gapsSvc.Generate(ctx, f.tenantID, f.userID, detail.ID, now)
	assert.ErrorIs(t, err, bulkdomain.ErrNotApproved)

	_, err = f.gapsSvc.Generate(ctx, f.tenantID, f.userID, f.node.Generate(), now)
	assert.ErrorIs(t, err, bulkdomain.ErrNotFound)
}

func TestGenerateGapsSkipsVendorsWithoutSortCode(t *testing.T) {
	f := setupGapsFixture(t)
	ctx := context.Background()

	bank := f.createBank(t, "First Bank", "011", "011151003")
	banked := f.createVendor(t, "Acme Supplies", "ACME", &bank.ID)
	unbanked := f.createVendor(t, "Zenith Traders", "ZEN", nil)
	f.createPayment(t, banked.ID, "INV-001", "1000", "")
	f.createPayment(t, unbanked.ID, "INV-002", "2000", "")
	batch := f.approvedBatch(t)

	result, err := f.gapsSvc.Generate(ctx, f.tenantID, f.userID, batch.ID, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 1, result.LineCount)
	assert.True(t, result.TotalAmount.Equal(dec("905.00")))
}

func TestGenerateGapsZeroEligibleLines(t *testing.T) {
	f := setupGapsFixture(t)
	ctx := context.Background()

	unbanked := f.createVendor(t, "Zenith Traders", "ZEN", nil)
	f.createPayment(t, unbanked.ID, "INV-001", "1000", "")
	batch := f.approvedBatch(t)

	_, err := f.gapsSvc.Generate(ctx, f.tenantID, f.userID, batch.ID, time.Now().UTC())
	assert.ErrorIs(t, err, gapsdomain.ErrNoEligiblePayments)

	// Nothing persisted on failure.
	assert.Zero(t, f.countLines(t))
}

func TestListGapsBatchesGrouped(t *testing.T) {
	f := setupGapsFixture(t)
	ctx := context.Background()

	bank := f.createBank(t, "First Bank", "011", "011151003")
	vendor := f.createVendor(t, "Acme Supplies", "ACME", &bank.ID)
	f.createPayment(t, vendor.ID, "INV-001", "1000", "")
	f.createPayment(t, vendor.ID, "INV-002", "2000", "")
	batch := f.approvedBatch(t)

	first, err := f.gapsSvc.Generate(ctx, f.tenantID, f.userID, batch.ID, time.Now().UTC())
	require.NoError(t, err)

	f.clk.Advance(time.Minute)
	second, err := f.gapsSvc.Generate(ctx, f.tenantID, f.userID, batch.ID, time.Now().UTC())
	require.NoError(t, err)
	require.NotEqual(t, first.BatchNumber, second.BatchNumber)

	batches, err := f.gapsSvc.List(ctx, f.tenantID)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	// Newest batch first, with the generation timestamp recovered from
	// the batch number.
	assert.Equal(t, second.BatchNumber, batches[0].BatchNumber)
	assert.Equal(t, first.BatchNumber, batches[1].BatchNumber)
	assert.True(t, batches[0].GeneratedAt.Equal(time.Date(2025, 1, 1, 10, 1, 0, 0, time.UTC)))
	assert.True(t, batches[1].GeneratedAt.Equal(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)))

	for _, b := range batches {
		assert.Equal(t, 2, b.LineCount)
		assert.True(t, b.TotalAmount.Equal(dec("2715.00")), "total = %s", b.TotalAmount)
	}
}

func TestGetGapsBatchNotFound(t *testing.T) {
	f := setupGapsFixture(t)

	_, err := f.gapsSvc.GetByBatchNumber(context.Background(), f.tenantID, "GAPS-19700101-000000")
	assert.ErrorIs(t, err, gapsdomain.ErrNotFound)
}
