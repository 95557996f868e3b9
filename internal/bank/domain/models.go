// Package domain contains bank reference data used for vendor disbursements.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Bank identifies a settlement bank by code and sort code.
type Bank struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Code      string       `gorm:"type:text;not null" json:"code"`
	SortCode  string       `gorm:"type:text;not null;default:''" json:"sort_code"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Bank) TableName() string { return "banks" }

func (b *Bank) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(b.Code) == "" {
		return ErrInvalidCode
	}
	return nil
}
