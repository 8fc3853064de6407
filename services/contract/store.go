package contract

import (
	"context"
	"errors"
	"strings"
	"time"

	"contract-lifecycle/pkg/db/option"
	"contract-lifecycle/pkg/db/pagination"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleVersion is returned when a guarded update finds the row changed.
var ErrStaleVersion = errors.New("contract was modified concurrently")

// ListFilter narrows contract queries. Zero values mean no restriction.
type ListFilter struct {
	Search         string
	Statuses       []Status
	ContractTypeID string
	ParentID       string
	EndFrom        *time.Time
	EndUntil       *time.Time
	Notifications  bool
	OrderByEndDate bool
}

// Store is the tenant scoped persistence of contracts, parties and types.
// Every method filters by the tenant id it is given.
type Store interface {
	WithTrx(tx *gorm.DB) Store

	GetContract(ctx context.Context, tenantID, id string) (*Contract, error)
	GetContractForUpdate(ctx context.Context, tenantID, id string) (*Contract, error)
	ContractExists(ctx context.Context, tenantID, id string) (bool, error)
	HasChildren(ctx context.Context, tenantID, id string) (bool, error)
	CreateContract(ctx context.Context, c *Contract) error
	UpdateContract(ctx context.Context, tenantID, id string, version int64, fields map[string]interface{}) error
	DeleteContract(ctx context.Context, tenantID, id string) error
	ListContracts(ctx context.Context, tenantID string, filter ListFilter, page *pagination.Pagination) ([]Contract, int64, error)
	CountContracts(ctx context.Context, tenantID string, filter ListFilter) (int64, error)
	ListTenantIDs(ctx context.Context) ([]string, error)

	GetParty(ctx context.Context, tenantID, contractID, partyID string) (*ContractParty, error)
	SignParty(ctx context.Context, tenantID, partyID string, signedAt time.Time, name, title, actorID string) error

	GetContractType(ctx context.Context, tenantID, id string) (*ContractType, error)
	CreateContractType(ctx context.Context, ct *ContractType) error
	SetContractTypeActive(ctx context.Context, tenantID, id string, active bool, actorID string) error
	CountContractTypes(ctx context.Context, tenantID string) (int64, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a gorm backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) WithTrx(tx *gorm.DB) Store {
	if tx == nil {
		return s
	}
	return &gormStore{db: tx}
}

func (s *gormStore) ready() error {
	if s == nil || s.db == nil {
		return gorm.ErrInvalidDB
	}
	return nil
}

// live selects non deleted contracts of one tenant.
func (s *gormStore) live(ctx context.Context, tenantID string) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&Contract{}).
		Scopes(option.TenantScope(tenantID)).
		Where("is_deleted = ?", false)
}

// withRelations preloads parties in display order and the contract type,
// both restricted to the tenant.
func withRelations(tenantID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Preload("Parties", func(db *gorm.DB) *gorm.DB {
				return db.Where("tenant_id = ?", tenantID).Order("sort_order ASC, position ASC")
			}).
			Preload("ContractType", "tenant_id = ?", tenantID)
	}
}

func (s *gormStore) GetContract(ctx context.Context, tenantID, id string) (*Contract, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var c Contract
	err := s.live(ctx, tenantID).
		Scopes(withRelations(tenantID)).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *gormStore) GetContractForUpdate(ctx context.Context, tenantID, id string) (*Contract, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var c Contract
	err := s.live(ctx, tenantID).
		Scopes(option.LockingUpdate).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *gormStore) ContractExists(ctx context.Context, tenantID, id string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	var count int64
	if err := s.live(ctx, tenantID).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormStore) HasChildren(ctx context.Context, tenantID, id string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	var count int64
	if err := s.live(ctx, tenantID).Where("parent_contract_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateContract inserts the contract and then its parties in slice order.
func (s *gormStore) CreateContract(ctx context.Context, c *Contract) error {
	if err := s.ready(); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(c).Error; err != nil {
		return err
	}
	for i := range c.Parties {
		p := &c.Parties[i]
		p.TenantID = c.TenantID
		p.ContractID = c.ID
		p.Position = i
		if err := db.Create(p).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateContract writes fields only when the stored version still equals
// version, and bumps the version.
func (s *gormStore) UpdateContract(ctx context.Context, tenantID, id string, version int64, fields map[string]interface{}) error {
	if err := s.ready(); err != nil {
		return err
	}

	values := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["version"] = version + 1

	res := s.live(ctx, tenantID).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

// DeleteContract physically removes the contract and its parties.
func (s *gormStore) DeleteContract(ctx context.Context, tenantID, id string) error {
	if err := s.ready(); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	if err := db.Where("tenant_id = ? AND contract_id = ?", tenantID, id).Delete(&ContractParty{}).Error; err != nil {
		return err
	}
	res := db.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&Contract{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *gormStore) filtered(ctx context.Context, tenantID string, f ListFilter) *gorm.DB {
	q := s.live(ctx, tenantID)

	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where(
			"LOWER(title) LIKE ? OR LOWER(contract_number) LIKE ? OR LOWER(description) LIKE ? OR LOWER(department) LIKE ? OR LOWER(project_code) LIKE ? OR LOWER(tags) LIKE ?",
			like, like, like, like, like, like,
		)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.ContractTypeID != "" {
		q = q.Where("contract_type_id = ?", f.ContractTypeID)
	}
	if f.ParentID != "" {
		q = q.Where("parent_contract_id = ?", f.ParentID)
	}
	if f.EndFrom != nil {
		q = q.Where("end_date >= ?", *f.EndFrom)
	}
	if f.EndUntil != nil {
		q = q.Where("end_date IS NOT NULL AND end_date <= ?", *f.EndUntil)
	}
	if f.Notifications {
		q = q.Where("notifications_enabled = ?", true)
	}
	return q
}

// ListContracts returns matching contracts with parties loaded and the total
// match count. A nil page returns every match.
func (s *gormStore) ListContracts(ctx context.Context, tenantID string, f ListFilter, page *pagination.Pagination) ([]Contract, int64, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.filtered(ctx, tenantID, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := s.filtered(ctx, tenantID, f).Scopes(withRelations(tenantID))
	if f.OrderByEndDate {
		q = q.Order("end_date ASC, id ASC")
	} else {
		q = q.Order("created_at DESC, id DESC")
	}
	if page != nil {
		q = q.Scopes(option.ApplyPagination(*page))
	}

	var out []Contract
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *gormStore) CountContracts(ctx context.Context, tenantID string, f ListFilter) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var total int64
	if err := s.filtered(ctx, tenantID, f).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ListTenantIDs returns every tenant owning at least one live contract. It is
// the only cross tenant read and serves background sweeps.
func (s *gormStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var ids []string
	err := s.db.WithContext(ctx).
		Model(&Contract{}).
		Where("is_deleted = ?", false).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error
	return ids, err
}

func (s *gormStore) GetParty(ctx context.Context, tenantID, contractID, partyID string) (*ContractParty, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var p ContractParty
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND contract_id = ? AND id = ?", tenantID, contractID, partyID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SignParty records a signature once. A party that is already signed is
// reported as ErrAlreadySigned.
func (s *gormStore) SignParty(ctx context.Context, tenantID, partyID string, signedAt time.Time, name, title, actorID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Model(&ContractParty{}).
		Where("tenant_id = ? AND id = ? AND signed_date IS NULL", tenantID, partyID).
		Updates(map[string]interface{}{
			"signed_date":     signedAt,
			"signed_by_name":  name,
			"signed_by_title": title,
			"updated_at":      signedAt,
			"updated_by":      actorID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadySigned
	}
	return nil
}

// ErrAlreadySigned is returned when a signature would overwrite another.
var ErrAlreadySigned = errors.New("party already signed")

func (s *gormStore) GetContractType(ctx context.Context, tenantID, id string) (*ContractType, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var ct ContractType
	err := s.db.WithContext(ctx).
		Scopes(option.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&ct).Error
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// CreateContractType inserts ct, deriving its slug from the name when unset.
// The slug is unique per tenant.
func (s *gormStore) CreateContractType(ctx context.Context, ct *ContractType) error {
	if err := s.ready(); err != nil {
		return err
	}
	if ct.Slug == "" {
		ct.Slug = slug.Make(ct.Name)
	}
	return s.db.WithContext(ctx).Create(ct).Error
}

func (s *gormStore) SetContractTypeActive(ctx context.Context, tenantID, id string, active bool, actorID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Model(&ContractType{}).
		Scopes(option.TenantScope(tenantID)).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now().UTC(),
			"updated_by": actorID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *gormStore) CountContractTypes(ctx context.Context, tenantID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&ContractType{}).
		Scopes(option.TenantScope(tenantID)).
		Count(&count).Error
	return count, err
}
