package contract

import (
	"context"
	"errors"
	"testing"

	"contract-lifecycle/pkg/db"
	"contract-lifecycle/pkg/db/pagination"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStoreUpdateContractVersionGuard(t *testing.T) {
	f := newFixture(t)
	c := f.create(t)
	ctx := context.Background()

	require.NoError(t, f.svc.store.UpdateContract(ctx, testTenant, c.ID, c.Version, map[string]interface{}{"title": "v2"}))

	err := f.svc.store.UpdateContract(ctx, testTenant, c.ID, c.Version, map[string]interface{}{"title": "stale"})
	require.ErrorIs(t, err, ErrStaleVersion)

	got, err := f.svc.store.GetContract(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Equal(t, "v2", got.Title)
	require.Equal(t, c.Version+1, got.Version)

	err = f.svc.store.UpdateContract(ctx, "globex", c.ID, got.Version, map[string]interface{}{"title": "foreign"})
	require.ErrorIs(t, err, ErrStaleVersion)
}

func TestStoreSignPartyOnce(t *testing.T) {
	f := newFixture(t)
	c := f.create(t)
	ctx := context.Background()
	partyID := c.Parties[0].ID

	require.NoError(t, f.svc.store.SignParty(ctx, testTenant, partyID, testNow, "A", "", testUser))
	require.ErrorIs(t, f.svc.store.SignParty(ctx, testTenant, partyID, testNow, "B", "", testUser), ErrAlreadySigned)

	p, err := f.svc.store.GetParty(ctx, testTenant, c.ID, partyID)
	require.NoError(t, err)
	require.Equal(t, "A", p.SignedByName)

	_, err = f.svc.store.GetParty(ctx, "globex", c.ID, partyID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStoreContractTypeSlugUniquePerTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ct, err := f.svc.store.GetContractType(ctx, testTenant, f.typeID)
	require.NoError(t, err)
	require.Equal(t, "service-agreement", ct.Slug)

	dup := &ContractType{ID: f.svc.nextID(), TenantID: testTenant, Name: "Service  Agreement", IsActive: true}
	err = f.svc.store.CreateContractType(ctx, dup)
	require.True(t, db.IsUniqueViolation(err), "got %v", err)

	f.seedType(t, "globex", "Service Agreement", true)
	n, err := f.svc.store.CountContractTypes(ctx, "globex")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.ErrorIs(t, f.svc.store.SetContractTypeActive(ctx, "globex", f.typeID, false, testUser), gorm.ErrRecordNotFound)
}

func TestStoreListContracts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"Office lease", "Cleaning services", "Lease of parking"} {
		req := f.createRequest()
		req.Title = title
		_, err := f.svc.Create(f.ctx, req)
		require.NoError(t, err)
	}

	items, total, err := f.svc.store.ListContracts(ctx, testTenant, ListFilter{Search: "LEASE"}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)

	page := pagination.Pagination{Page: 2, PageSize: 2}
	items, total, err = f.svc.store.ListContracts(ctx, testTenant, ListFilter{}, &page)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, items, 1)

	items, _, err = f.svc.store.ListContracts(ctx, "globex", ListFilter{}, nil)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestStoreSoftDeletedRowsAreHidden(t *testing.T) {
	f := newFixture(t)
	c := f.create(t)
	ctx := context.Background()

	require.NoError(t, f.db.Model(&Contract{}).Where("id = ?", c.ID).Update("is_deleted", true).Error)

	_, err := f.svc.store.GetContract(ctx, testTenant, c.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	ok, err := f.svc.store.ContractExists(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ids, err := f.svc.store.ListTenantIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestStoreListTenantIDs(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	f.create(t)

	otherType := f.seedType(t, "globex", "NDA", true)
	req := f.createRequest()
	req.ContractTypeID = otherType
	_, err := f.svc.Create(tenantCtx("globex", "admin"), req)
	require.NoError(t, err)

	ids, err := f.svc.store.ListTenantIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"acme", "globex"}, ids)
}

func TestStoreWithoutDB(t *testing.T) {
	s := NewStore(nil)
	_, err := s.GetContract(context.Background(), testTenant, "x")
	require.ErrorIs(t, err, gorm.ErrInvalidDB)
}

func TestSeedDefaultTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.SeedDefaultTypes(ctx, "globex")
	require.NoError(t, err)
	require.Equal(t, len(DefaultTypes()), n)

	count, err := f.svc.store.CountContractTypes(ctx, "globex")
	require.NoError(t, err)
	require.EqualValues(t, len(DefaultTypes()), count)

	var nda ContractType
	require.NoError(t, f.db.Where("tenant_id = ? AND slug = ?", "globex", "non-disclosure-agreement").First(&nda).Error)
	require.False(t, nda.SupportsRenewal)
	require.Equal(t, 90, nda.DefaultReminderDays)

	// Seeding is skipped once the tenant owns types.
	n, err = f.svc.SeedDefaultTypes(ctx, "globex")
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = f.svc.SeedDefaultTypes(ctx, testTenant)
	require.NoError(t, err)
	require.Zero(t, n)
}
