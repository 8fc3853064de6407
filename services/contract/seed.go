package contract

import (
	"context"

	"contract-lifecycle/pkg/tenant"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTypes are the templates a tenant starts with.
func DefaultTypes() []ContractType {
	return []ContractType{
		{Name: "Employment Agreement", Description: "Employment contracts and job agreements", Color: "#28a745", Icon: "user-tie", DefaultDurationDays: 365, DefaultReminderDays: 30, RequiresApproval: true, SupportsRenewal: true},
		{Name: "Service Agreement", Description: "Service contracts and vendor agreements", Color: "#007bff", Icon: "handshake", DefaultDurationDays: 365, DefaultReminderDays: 60, RequiresApproval: true, SupportsRenewal: true},
		{Name: "Non-Disclosure Agreement", Description: "Confidentiality and non-disclosure agreements", Color: "#ffc107", Icon: "eye-slash", DefaultDurationDays: 1095, DefaultReminderDays: 90},
		{Name: "Lease Agreement", Description: "Property and equipment lease contracts", Color: "#17a2b8", Icon: "building", DefaultDurationDays: 365, DefaultReminderDays: 45, RequiresApproval: true, SupportsRenewal: true},
		{Name: "Purchase Agreement", Description: "Purchase orders and procurement contracts", Color: "#dc3545", Icon: "shopping-cart", DefaultDurationDays: 90, DefaultReminderDays: 15, RequiresApproval: true},
	}
}

// SeedDefaultTypes gives tenantID the default contract types unless it
// already owns any. It returns how many types were created.
func (s *Service) SeedDefaultTypes(ctx context.Context, tenantID string) (int, error) {
	n, err := s.store.CountContractTypes(ctx, tenantID)
	if err != nil {
		return 0, storeError("count contract types", err)
	}
	if n > 0 {
		return 0, nil
	}

	now := s.now().UTC()
	types := DefaultTypes()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		for i := range types {
			ct := &types[i]
			ct.ID = s.node.Generate().String()
			ct.TenantID = tenantID
			ct.IsActive = true
			ct.CreatedAt, ct.UpdatedAt = now, now
			ct.CreatedBy, ct.UpdatedBy = tenant.SystemUserID, tenant.SystemUserID
			if err := store.CreateContractType(ctx, ct); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeError("seed contract types", err)
	}

	zap.L().Info("default contract types created", zap.String("tenant_id", tenantID), zap.Int("count", len(types)))
	return len(types), nil
}
