package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateBankRequest struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	SortCode string `json:"sort_code"`
}

type Service interface {
	Create(ctx context.Context, tenantID snowflake.ID, req CreateBankRequest) (Bank, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]Bank, error)
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (Bank, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidCode = errors.New("invalid_code")
	ErrNotFound    = errors.New("bank_not_found")
)
