package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bankdomain "github.com/novahq/nova/internal/bank/domain"
	"github.com/novahq/nova/pkg/db/option"
	"github.com/novahq/nova/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[bankdomain.Bank]
}

func NewService(p Params) bankdomain.Service {
	return &Service{
		log:   p.Log.Named("bank.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[bankdomain.Bank](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, tenantID snowflake.ID, req bankdomain.CreateBankRequest) (bankdomain.Bank, error) {
	now := time.Now().UTC()
	bank := bankdomain.Bank{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Name:      req.Name,
		Code:      req.Code,
		SortCode:  req.SortCode,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := bank.Validate(); err != nil {
		return bankdomain.Bank{}, err
	}

	if err := s.repo.Create(ctx, &bank); err != nil {
		return bankdomain.Bank{}, err
	}
	return bank, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]bankdomain.Bank, error) {
	items, err := s.repo.Find(ctx, &bankdomain.Bank{TenantID: tenantID},
		option.WithOrder("name ASC"))
	if err != nil {
		return nil, err
	}

	banks := make([]bankdomain.Bank, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		banks = append(banks, *item)
	}
	return banks, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (bankdomain.Bank, error) {
	item, err := s.repo.FindOne(ctx, &bankdomain.Bank{ID: id, TenantID: tenantID})
	if err != nil {
		return bankdomain.Bank{}, err
	}
	if item == nil {
		return bankdomain.Bank{}, bankdomain.ErrNotFound
	}
	return *item, nil
}
