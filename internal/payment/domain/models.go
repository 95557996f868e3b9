// Package domain contains the payment entity and the tax-calculation rules
// for full and two-stage partial settlements.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	vendordomain "github.com/novahq/nova/internal/vendors/domain"
)

// PaymentStatus represents payment lifecycle states.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusScheduled PaymentStatus = "Scheduled"
	PaymentStatusProcessed PaymentStatus = "Processed"
	PaymentStatusPaid      PaymentStatus = "Paid"
	PaymentStatusCancelled PaymentStatus = "Cancelled"
)

// ValidTransitionStatus reports whether st may be set through the status
// update operation. Scheduled is excluded: it is only reachable through
// bulk-schedule approval.
func ValidTransitionStatus(st PaymentStatus) bool {
	switch st {
	case PaymentStatusPending, PaymentStatusProcessed, PaymentStatusPaid, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment is a single disbursement obligation against a vendor invoice.
// A full payment settles the invoice in one row. A two-stage partial
// settlement is two rows: the first-stage tranche (50% or 70%, no tax
// withheld) and the final tranche carrying the whole tax deduction,
// linked through ParentPaymentID.
type Payment struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_payments_tenant_invoice" json:"tenant_id"`
	VendorID       snowflake.ID  `gorm:"not null;index" json:"vendor_id"`
	InvoiceNumber  string        `gorm:"type:text;not null;uniqueIndex:ux_payments_tenant_invoice" json:"invoice_number"`
	Description    string        `gorm:"type:text;not null;default:''" json:"description"`
	Reference      string        `gorm:"type:text;not null;default:''" json:"reference"`
	Remarks        string        `gorm:"type:text;not null;default:''" json:"remarks"`
	InvoiceDate    time.Time     `gorm:"not null" json:"invoice_date"`
	DueDate        *time.Time    `gorm:"" json:"due_date,omitempty"`
	PaymentDate    *time.Time    `gorm:"" json:"payment_date,omitempty"`
	Status         PaymentStatus `gorm:"type:text;not null;default:'Pending'" json:"status"`
	BulkScheduleID *snowflake.ID `gorm:"index" json:"bulk_schedule_id,omitempty"`

	GrossAmount    decimal.Decimal      `gorm:"type:decimal(18,2);not null" json:"gross_amount"`
	TaxableAmount  decimal.Decimal      `gorm:"type:decimal(18,2);not null" json:"taxable_amount"`
	VatAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null" json:"vat_amount"`
	WhtAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null" json:"wht_amount"`
	NetAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null" json:"net_amount"`
	AppliedTaxType vendordomain.TaxType `gorm:"type:text;not null;default:'Both'" json:"applied_tax_type"`
	AppliedVatRate decimal.Decimal      `gorm:"type:decimal(5,2);not null" json:"applied_vat_rate"`
	AppliedWhtRate decimal.Decimal      `gorm:"type:decimal(5,2);not null" json:"applied_wht_rate"`

	OriginalInvoiceAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"original_invoice_amount"`
	PaymentAmount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"payment_amount"`
	TotalAmountPaid       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount_paid"`
	IsPartialPayment      bool            `gorm:"not null;default:false" json:"is_partial_payment"`
	IsFinalPayment        bool            `gorm:"not null;default:false" json:"is_final_payment"`
	ParentPaymentID       *snowflake.ID   `gorm:"index" json:"parent_payment_id,omitempty"`

	CreatedByUserID  snowflake.ID  `gorm:"not null" json:"created_by_user_id"`
	ApprovedByUserID *snowflake.ID `gorm:"" json:"approved_by_user_id,omitempty"`
	CreatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

var oneHundred = decimal.NewFromInt(100)

func (p *Payment) HasVatApplied() bool {
	return p.AppliedTaxType == vendordomain.TaxTypeVAT || p.AppliedTaxType == vendordomain.TaxTypeBoth
}

func (p *Payment) HasWhtApplied() bool {
	return p.AppliedTaxType == vendordomain.TaxTypeWHT || p.AppliedTaxType == vendordomain.TaxTypeBoth
}

// CalculateAmounts computes VatAmount, WhtAmount and NetAmount from the
// payment's gross/taxable fields and applied rates. It is pure over those
// inputs: calling it again without mutating them yields the same result.
//
// First-stage tranches carry no deductions; the invoice's entire tax is
// withheld from the final tranche, computed against the original taxable
// base rather than the remaining balance.
func (p *Payment) CalculateAmounts() {
	if p.IsPartialPayment && !p.IsFinalPayment {
		p.VatAmount = decimal.Zero.Round(2)
		p.WhtAmount = decimal.Zero.Round(2)
		p.NetAmount = p.PaymentAmount
		return
	}

	vat := decimal.Zero
	if p.HasVatApplied() {
		vat = p.TaxableAmount.Mul(p.AppliedVatRate).Div(oneHundred).Round(2)
	}
	wht := decimal.Zero
	if p.HasWhtApplied() {
		wht = p.TaxableAmount.Mul(p.AppliedWhtRate).Div(oneHundred).Round(2)
	}

	p.VatAmount = vat
	p.WhtAmount = wht
	p.NetAmount = p.GrossAmount.Sub(vat).Sub(wht)
}

// RemainingBalance is the portion of the original invoice not yet paid.
func (p *Payment) RemainingBalance() decimal.Decimal {
	return p.OriginalInvoiceAmount.Sub(p.TotalAmountPaid)
}

// RemainingPercentage expresses RemainingBalance as a percentage of the
// original invoice amount.
func (p *Payment) RemainingPercentage() decimal.Decimal {
	if p.OriginalInvoiceAmount.IsZero() {
		return decimal.Zero
	}
	return p.RemainingBalance().Div(p.OriginalInvoiceAmount).Mul(oneHundred)
}

// SetAsFirstPartialPayment marks the payment as the opening tranche of a
// two-stage settlement: percentage of the invoice is disbursed now, the
// rest (and all tax) waits for the final tranche.
func (p *Payment) SetAsFirstPartialPayment(invoiceAmount, percentage decimal.Decimal) {
	p.OriginalInvoiceAmount = invoiceAmount
	p.PaymentAmount = invoiceAmount.Mul(percentage).Div(oneHundred).Round(2)
	p.TotalAmountPaid = p.PaymentAmount
	p.IsPartialPayment = true
	p.IsFinalPayment = false
	p.GrossAmount = p.PaymentAmount
}

// SetAsFinalPayment marks the payment as the closing tranche: the gross is
// whatever the first tranche left unpaid, and the settlement is complete.
func (p *Payment) SetAsFinalPayment(invoiceAmount, firstPaymentAmount decimal.Decimal) {
	p.OriginalInvoiceAmount = invoiceAmount
	p.PaymentAmount = invoiceAmount.Sub(firstPaymentAmount)
	p.TotalAmountPaid = invoiceAmount
	p.IsPartialPayment = true
	p.IsFinalPayment = true
	p.GrossAmount = p.PaymentAmount
}
