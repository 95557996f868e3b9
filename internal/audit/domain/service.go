package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	AuditLog(ctx context.Context, tenantID *snowflake.ID, actorID *snowflake.ID, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, tenantID snowflake.ID) ([]AuditLog, error)
}

var (
	ErrInvalidAction = errors.New("invalid_action")
)
