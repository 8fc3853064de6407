package bootstrap

import (
	"context"
	"fmt"

	"contract-lifecycle/pkg/config"
	"contract-lifecycle/services/contract"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	config    *config.Config
	contracts *contract.Service
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Config    *config.Config
	Contracts *contract.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		config:    p.Config,
		contracts: p.Contracts,
	}
}

// Migrate creates the contract tables and gives the platform tenant its
// default contract types.
func (s *Service) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(contract.Models()...); err != nil {
		zap.L().Error("[bootstrap] Failed to migrate contract tables", zap.Error(err))
		return fmt.Errorf("migrate contract tables: %w", err)
	}

	platform := s.config.Platform
	if platform.ID == "" {
		zap.L().Info("[bootstrap] Platform tenant is not configured. Skipping default contract types.")
		return nil
	}

	n, err := s.contracts.SeedDefaultTypes(ctx, platform.ID)
	if err != nil {
		zap.L().Error("[bootstrap] Failed to seed contract types", zap.String("tenant_id", platform.ID), zap.Error(err))
		return err
	}
	if n == 0 {
		zap.L().Info("[bootstrap] Contract types already exist", zap.String("tenant_name", platform.Name))
	}
	return nil
}
