package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	VendorID      snowflake.ID     `json:"vendor_id"`
	InvoiceNumber string           `json:"invoice_number"`
	GrossAmount   decimal.Decimal  `json:"gross_amount"`
	TaxableAmount *decimal.Decimal `json:"taxable_amount,omitempty"`
	Description   string           `json:"description"`
	Reference     string           `json:"reference"`
	Remarks       string           `json:"remarks"`
	InvoiceDate   time.Time        `json:"invoice_date"`
	DueDate       *time.Time       `json:"due_date,omitempty"`

	IsPartialPayment  bool            `json:"is_partial_payment"`
	IsFinalPayment    bool            `json:"is_final_payment"`
	PartialPercentage decimal.Decimal `json:"partial_percentage"`
	FirstPaymentID    *snowflake.ID   `json:"first_payment_id,omitempty"`
}

type UpdatePaymentStatusRequest struct {
	Status      PaymentStatus `json:"status"`
	Remarks     *string       `json:"remarks,omitempty"`
	PaymentDate *time.Time    `json:"payment_date,omitempty"`
}

type Service interface {
	Create(ctx context.Context, tenantID, userID snowflake.ID, req CreatePaymentRequest) (Payment, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]Payment, error)
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (Payment, error)
	UpdateStatus(ctx context.Context, tenantID, userID, id snowflake.ID, req UpdatePaymentStatusRequest) error
	Delete(ctx context.Context, tenantID, id snowflake.ID) error
}

var (
	ErrNotFound                = errors.New("payment_not_found")
	ErrInvalidInvoiceNumber    = errors.New("invalid_invoice_number")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrDuplicateInvoiceNumber  = errors.New("duplicate_invoice_number")
	ErrInvalidPercentage       = errors.New("invalid_partial_percentage")
	ErrInvalidFirstPercentage  = errors.New("invalid_first_partial_percentage")
	ErrPercentageMismatch      = errors.New("final_percentage_mismatch")
	ErrFirstPaymentRequired    = errors.New("first_payment_required")
	ErrFirstPaymentNotFound    = errors.New("first_payment_not_found")
	ErrAlreadyFinal            = errors.New("payment_already_final")
	ErrInvalidStatus           = errors.New("invalid_payment_status")
	ErrNotPending              = errors.New("payment_not_pending")
)
