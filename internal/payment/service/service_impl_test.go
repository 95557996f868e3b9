package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	paymentdomain "github.com/novahq/nova/internal/payment/domain"
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

func setupPaymentService(t *testing.T) (paymentdomain.Service, vendordomain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&vendordomain.Vendor{}, &paymentdomain.Payment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	vendorSvc := vendorservice.NewService(vendorservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
	})

	paymentSvc := NewService(ServiceParam{
		DB:        db,
		Log:       logger,
		GenID:     node,
		VendorSvc: vendorSvc,
	})

	return paymentSvc, vendorSvc, node
}

func createTestVendor(t *testing.T, svc vendordomain.Service, tenantID snowflake.ID) vendordomain.Vendor {
	t.Helper()
	vendor, err := svc.Create(context.Background(), tenantID, vendordomain.CreateVendorRequest{
		Name:    "Acme Supplies",
		Code:    "ACME",
		TaxType: vendordomain.TaxTypeBoth,
	})
	require.NoError(t, err)
	return vendor
}

func TestCreateFullPayment(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	payment, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      vendor.ID,
		InvoiceNumber: "INV-001",
		GrossAmount:   dec("1000"),
	})
	require.NoError(t, err)

	assert.Equal(t, paymentdomain.PaymentStatusPending, payment.Status)
	assert.True(t, payment.VatAmount.Equal(dec("75.00")), "vat = %s", payment.VatAmount)
	assert.True(t, payment.WhtAmount.Equal(dec("20.00")), "wht = %s", payment.WhtAmount)
	assert.True(t, payment.NetAmount.Equal(dec("905.00")), "net = %s", payment.NetAmount)
	assert.True(t, payment.TotalAmountPaid.Equal(dec("1000")))
	assert.False(t, payment.IsPartialPayment)
}

func TestCreatePaymentValidation(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	_, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:    vendor.ID,
		GrossAmount: dec("1000"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidInvoiceNumber)

	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      vendor.ID,
		InvoiceNumber: "INV-001",
		GrossAmount:   dec("0"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      node.Generate(),
		InvoiceNumber: "INV-001",
		GrossAmount:   dec("1000"),
	})
	assert.ErrorIs(t, err, vendordomain.ErrNotFound)
}

func TestCreatePaymentDuplicateInvoiceNumber(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	_, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      vendor.ID,
		InvoiceNumber: "INV-100",
		GrossAmount:   dec("500"),
	})
	require.NoError(t, err)

	// Same number, different case.
	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      vendor.ID,
		InvoiceNumber: "inv-100",
		GrossAmount:   dec("800"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrDuplicateInvoiceNumber)

	// A different tenant may reuse the number.
	otherTenant := node.Generate()
	otherVendor := createTestVendor(t, vendorSvc, otherTenant)
	_, err = svc.Create(ctx, otherTenant, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      otherVendor.ID,
		InvoiceNumber: "INV-100",
		GrossAmount:   dec("500"),
	})
	assert.NoError(t, err)
}

func TestCreateFirstPartialPayment(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	payment, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-200",
		GrossAmount:       dec("1000"),
		IsPartialPayment:  true,
		PartialPercentage: dec("70"),
	})
	require.NoError(t, err)

	assert.True(t, payment.PaymentAmount.Equal(dec("700.00")))
	assert.True(t, payment.VatAmount.IsZero())
	assert.True(t, payment.WhtAmount.IsZero())
	assert.True(t, payment.NetAmount.Equal(dec("700.00")))
	assert.True(t, payment.IsPartialPayment)
	assert.False(t, payment.IsFinalPayment)
}

func TestCreateFirstPartialPaymentPercentageGate(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	for _, pct := range []string{"60", "30", "99"} {
		_, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
			VendorID:          vendor.ID,
			InvoiceNumber:     "INV-300",
			GrossAmount:       dec("1000"),
			IsPartialPayment:  true,
			PartialPercentage: dec(pct),
		})
		assert.ErrorIs(t, err, paymentdomain.ErrInvalidFirstPercentage, "pct %s", pct)
	}

	for _, pct := range []string{"0", "100", "-5"} {
		_, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
			VendorID:          vendor.ID,
			InvoiceNumber:     "INV-300",
			GrossAmount:       dec("1000"),
			IsPartialPayment:  true,
			PartialPercentage: dec(pct),
		})
		assert.ErrorIs(t, err, paymentdomain.ErrInvalidPercentage, "pct %s", pct)
	}
}

func TestCreateFinalPayment(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	first, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-400",
		GrossAmount:       dec("1000"),
		IsPartialPayment:  true,
		PartialPercentage: dec("70"),
	})
	require.NoError(t, err)

	final, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-400",
		GrossAmount:       dec("300"),
		IsPartialPayment:  true,
		IsFinalPayment:    true,
		PartialPercentage: dec("30"),
		FirstPaymentID:    &first.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-400-FINAL", final.InvoiceNumber)
	require.NotNil(t, final.ParentPaymentID)
	assert.Equal(t, first.ID, *final.ParentPaymentID)
	assert.True(t, final.GrossAmount.Equal(dec("300.00")))
	assert.True(t, final.VatAmount.Equal(dec("75.00")), "vat = %s", final.VatAmount)
	assert.True(t, final.WhtAmount.Equal(dec("20.00")), "wht = %s", final.WhtAmount)
	assert.True(t, final.NetAmount.Equal(dec("205.00")), "net = %s", final.NetAmount)

	// The first tranche is settled.
	settled, err := svc.GetByID(ctx, tenantID, first.ID)
	require.NoError(t, err)
	assert.True(t, settled.TotalAmountPaid.Equal(dec("1000")), "total paid = %s", settled.TotalAmountPaid)
}

func TestCreateFinalPaymentGuards(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	first, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-500",
		GrossAmount:       dec("1000"),
		IsPartialPayment:  true,
		PartialPercentage: dec("50"),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-500",
		GrossAmount:       dec("500"),
		IsPartialPayment:  true,
		IsFinalPayment:    true,
		PartialPercentage: dec("50"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrFirstPaymentRequired)

	missing := node.Generate()
	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-500",
		GrossAmount:       dec("500"),
		IsPartialPayment:  true,
		IsFinalPayment:    true,
		PartialPercentage: dec("50"),
		FirstPaymentID:    &missing,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrFirstPaymentNotFound)

	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-500",
		GrossAmount:       dec("500"),
		IsPartialPayment:  true,
		IsFinalPayment:    true,
		PartialPercentage: dec("40"),
		FirstPaymentID:    &first.ID,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrPercentageMismatch)

	final, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-500",
		GrossAmount:       dec("500"),
		IsPartialPayment:  true,
		IsFinalPayment:    true,
		PartialPercentage: dec("50"),
		FirstPaymentID:    &first.ID,
	})
	require.NoError(t, err)

	// Finalizing against an already-final payment is a conflict.
	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-501",
		GrossAmount:       dec("500"),
		IsPartialPayment:  true,
		IsFinalPayment:    true,
		PartialPercentage: dec("50"),
		FirstPaymentID:    &final.ID,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyFinal)
}

func TestCreateFinalPaymentSettledFirstStage(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	first, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-900",
		GrossAmount:       dec("1000"),
		IsPartialPayment:  true,
		PartialPercentage: dec("70"),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-900",
		GrossAmount:       dec("300"),
		IsPartialPayment:  true,
		IsFinalPayment:    true,
		PartialPercentage: dec("30"),
		FirstPaymentID:    &first.ID,
	})
	require.NoError(t, err)

	// A second final tranche under a fresh invoice number must still be
	// rejected: the first stage is settled and has its final child.
	_, err = svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:          vendor.ID,
		InvoiceNumber:     "INV-901",
		GrossAmount:       dec("300"),
		IsPartialPayment:  true,
		IsFinalPayment:    true,
		PartialPercentage: dec("30"),
		FirstPaymentID:    &first.ID,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyFinal)
}

func TestUpdatePaymentStatus(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	payment, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      vendor.ID,
		InvoiceNumber: "INV-600",
		GrossAmount:   dec("250"),
	})
	require.NoError(t, err)

	err = svc.UpdateStatus(ctx, tenantID, userID, payment.ID, paymentdomain.UpdatePaymentStatusRequest{
		Status: paymentdomain.PaymentStatusScheduled,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidStatus)

	err = svc.UpdateStatus(ctx, tenantID, userID, payment.ID, paymentdomain.UpdatePaymentStatusRequest{
		Status: paymentdomain.PaymentStatusProcessed,
	})
	require.NoError(t, err)

	updated, err := svc.GetByID(ctx, tenantID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusProcessed, updated.Status)
}

func TestDeletePaymentOnlyPending(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	payment, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      vendor.ID,
		InvoiceNumber: "INV-700",
		GrossAmount:   dec("250"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, tenantID, userID, payment.ID, paymentdomain.UpdatePaymentStatusRequest{
		Status: paymentdomain.PaymentStatusProcessed,
	}))

	err = svc.Delete(ctx, tenantID, payment.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrNotPending)

	require.NoError(t, svc.UpdateStatus(ctx, tenantID, userID, payment.ID, paymentdomain.UpdatePaymentStatusRequest{
		Status: paymentdomain.PaymentStatusPending,
	}))
	require.NoError(t, svc.Delete(ctx, tenantID, payment.ID))

	_, err = svc.GetByID(ctx, tenantID, payment.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)
}

func TestGetPaymentTenantScoped(t *testing.T) {
	svc, vendorSvc, node := setupPaymentService(t)
	ctx := context.Background()
	tenantID, userID := node.Generate(), node.Generate()
	vendor := createTestVendor(t, vendorSvc, tenantID)

	payment, err := svc.Create(ctx, tenantID, userID, paymentdomain.CreatePaymentRequest{
		VendorID:      vendor.ID,
		InvoiceNumber: "INV-800",
		GrossAmount:   dec("250"),
	})
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, node.Generate(), payment.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)
}
