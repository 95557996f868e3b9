package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateVendorRequest struct {
	Name                    string           `json:"name"`
	Code                    string           `json:"code"`
	AccountName             string           `json:"account_name"`
	AccountNumber           string           `json:"account_number"`
	Address                 string           `json:"address"`
	PhoneNumber             string           `json:"phone_number"`
	Email                   string           `json:"email"`
	TaxIdentificationNumber string           `json:"tax_identification_number"`
	TaxType                 TaxType          `json:"tax_type"`
	VatRate                 *decimal.Decimal `json:"vat_rate,omitempty"`
	WhtRate                 *decimal.Decimal `json:"wht_rate,omitempty"`
	BankID                  *snowflake.ID    `json:"bank_id,omitempty"`
}

type UpdateVendorRequest struct {
	Name          *string          `json:"name,omitempty"`
	AccountName   *string          `json:"account_name,omitempty"`
	AccountNumber *string          `json:"account_number,omitempty"`
	Address       *string          `json:"address,omitempty"`
	PhoneNumber   *string          `json:"phone_number,omitempty"`
	Email         *string          `json:"email,omitempty"`
	TaxType       *TaxType         `json:"tax_type,omitempty"`
	VatRate       *decimal.Decimal `json:"vat_rate,omitempty"`
	WhtRate       *decimal.Decimal `json:"wht_rate,omitempty"`
	BankID        *snowflake.ID    `json:"bank_id,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type Service interface {
	Create(ctx context.Context, tenantID snowflake.ID, req CreateVendorRequest) (Vendor, error)
	Update(ctx context.Context, tenantID, id snowflake.ID, req UpdateVendorRequest) (Vendor, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]Vendor, error)
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (Vendor, error)
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidCode    = errors.New("invalid_code")
	ErrInvalidTaxType = errors.New("invalid_tax_type")
	ErrInvalidTaxRate = errors.New("invalid_tax_rate")
	ErrNotFound       = errors.New("vendor_not_found")
)
