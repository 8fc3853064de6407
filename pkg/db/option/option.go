// Package option holds reusable gorm query scopes.
package option

import (
	"contract-lifecycle/pkg/db/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockingUpdate takes a row lock for the selected rows. Dialects without
// row locks (sqlite) ignore the clause.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// ApplyPagination limits the query to the requested page.
func ApplyPagination(p pagination.Pagination) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit())
	}
}

// TenantScope restricts a query to one tenant.
func TenantScope(tenantID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}
