// Package domain contains the vendor master record and its tax profile.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// TaxType selects which deductions apply to a vendor's payments.
type TaxType string

const (
	TaxTypeNone TaxType = "None"
	TaxTypeVAT  TaxType = "VAT"
	TaxTypeWHT  TaxType = "WHT"
	TaxTypeBoth TaxType = "Both"
)

// ValidTaxType reports whether t is a known tax type.
func ValidTaxType(t TaxType) bool {
	switch t {
	case TaxTypeNone, TaxTypeVAT, TaxTypeWHT, TaxTypeBoth:
		return true
	}
	return false
}

// Vendor is a payee. The tax profile fields are snapshotted onto each
// payment at creation time, so later profile edits never reprice history.
type Vendor struct {
	ID                      snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID                snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	Name                    string          `gorm:"type:text;not null" json:"name"`
	Code                    string          `gorm:"type:text;not null" json:"code"`
	AccountName             string          `gorm:"type:text;not null;default:''" json:"account_name"`
	AccountNumber           string          `gorm:"type:text;not null;default:''" json:"account_number"`
	Address                 string          `gorm:"type:text;not null;default:''" json:"address"`
	PhoneNumber             string          `gorm:"type:text;not null;default:''" json:"phone_number"`
	Email                   string          `gorm:"type:text;not null;default:''" json:"email"`
	TaxIdentificationNumber string          `gorm:"type:text;not null;default:''" json:"tax_identification_number"`
	TaxType                 TaxType         `gorm:"type:text;not null;default:'Both'" json:"tax_type"`
	VatRate                 decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"vat_rate"`
	WhtRate                 decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"wht_rate"`
	IsActive                bool            `gorm:"not null;default:true" json:"is_active"`
	BankID                  *snowflake.ID   `gorm:"index" json:"bank_id,omitempty"`
	CreatedAt               time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt               time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Vendor) TableName() string { return "vendors" }

var (
	rateFloor   = decimal.Zero
	rateCeiling = decimal.NewFromInt(100)
)

func (v *Vendor) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(v.Code) == "" {
		return ErrInvalidCode
	}
	if !ValidTaxType(v.TaxType) {
		return ErrInvalidTaxType
	}
	if v.VatRate.LessThan(rateFloor) || v.VatRate.GreaterThan(rateCeiling) {
		return ErrInvalidTaxRate
	}
	if v.WhtRate.LessThan(rateFloor) || v.WhtRate.GreaterThan(rateCeiling) {
		return ErrInvalidTaxRate
	}
	return nil
}

func (v *Vendor) HasVat() bool { return v.TaxType == TaxTypeVAT || v.TaxType == TaxTypeBoth }
func (v *Vendor) HasWht() bool { return v.TaxType == TaxTypeWHT || v.TaxType == TaxTypeBoth }
