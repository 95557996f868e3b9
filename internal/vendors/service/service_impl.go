package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	vendordomain "github.com/novahq/nova/internal/vendors/domain"
	"github.com/novahq/nova/pkg/db/option"
	"github.com/novahq/nova/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Statutory default rates applied when a vendor is created without
// explicit overrides.
var (
	defaultVatRate = decimal.RequireFromString("7.5")
	defaultWhtRate = decimal.RequireFromString("2.0")
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[vendordomain.Vendor]
}

func NewService(p Params) vendordomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("vendor.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[vendordomain.Vendor](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, tenantID snowflake.ID, req vendordomain.CreateVendorRequest) (vendordomain.Vendor, error) {
	taxType := req.TaxType
	if taxType == "" {
		taxType = vendordomain.TaxTypeBoth
	}

	vatRate := defaultVatRate
	if req.VatRate != nil {
		vatRate = *req.VatRate
	}
	whtRate := defaultWhtRate
	if req.WhtRate != nil {
		whtRate = *req.WhtRate
	}

	now := time.Now().UTC()
	vendor := vendordomain.Vendor{
		ID:                      s.genID.Generate(),
		TenantID:                tenantID,
		Name:                    req.Name,
		Code:                    req.Code,
		AccountName:             req.AccountName,
		AccountNumber:           req.AccountNumber,
		Address:                 req.Address,
		PhoneNumber:             req.PhoneNumber,
		Email:                   req.Email,
		TaxIdentificationNumber: req.TaxIdentificationNumber,
		TaxType:                 taxType,
		VatRate:                 vatRate,
		WhtRate:                 whtRate,
		IsActive:                true,
		BankID:                  req.BankID,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := vendor.Validate(); err != nil {
		return vendordomain.Vendor{}, err
	}

	if err := s.repo.Create(ctx, &vendor); err != nil {
		return vendordomain.Vendor{}, err
	}
	return vendor, nil
}

func (s *Service) Update(ctx context.Context, tenantID, id snowflake.ID, req vendordomain.UpdateVendorRequest) (vendordomain.Vendor, error) {
	vendor, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return vendordomain.Vendor{}, err
	}

	if req.Name != nil {
		vendor.Name = *req.Name
	}
	if req.AccountName != nil {
		vendor.AccountName = *req.AccountName
	}
	if req.AccountNumber != nil {
		vendor.AccountNumber = *req.AccountNumber
	}
	if req.Address != nil {
		vendor.Address = *req.Address
	}
	if req.PhoneNumber != nil {
		vendor.PhoneNumber = *req.PhoneNumber
	}
	if req.Email != nil {
		vendor.Email = *req.Email
	}
	if req.TaxType != nil {
		vendor.TaxType = *req.TaxType
	}
	if req.VatRate != nil {
		vendor.VatRate = *req.VatRate
	}
	if req.WhtRate != nil {
		vendor.WhtRate = *req.WhtRate
	}
	if req.BankID != nil {
		vendor.BankID = req.BankID
	}
	if req.IsActive != nil {
		vendor.IsActive = *req.IsActive
	}
	vendor.UpdatedAt = time.Now().UTC()

	if err := vendor.Validate(); err != nil {
		return vendordomain.Vendor{}, err
	}

	if err := s.db.WithContext(ctx).Save(&vendor).Error; err != nil {
		return vendordomain.Vendor{}, err
	}
	return vendor, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]vendordomain.Vendor, error) {
	items, err := s.repo.Find(ctx, &vendordomain.Vendor{TenantID: tenantID},
		option.WithOrder("name ASC"))
	if err != nil {
		return nil, err
	}

	vendors := make([]vendordomain.Vendor, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		vendors = append(vendors, *item)
	}
	return vendors, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (vendordomain.Vendor, error) {
	item, err := s.repo.FindOne(ctx, &vendordomain.Vendor{ID: id, TenantID: tenantID})
	if err != nil {
		return vendordomain.Vendor{}, err
	}
	if item == nil {
		return vendordomain.Vendor{}, vendordomain.ErrNotFound
	}
	return *item, nil
}
