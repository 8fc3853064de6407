package contract

import (
	"context"
	"testing"
	"time"

	"contract-lifecycle/pkg/config"
	"contract-lifecycle/pkg/sequence"
	"contract-lifecycle/pkg/tenant"
	"contract-lifecycle/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const (
	testTenant = "acme"
	testUser   = "user-1"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	ctx    context.Context
	typeID string
}

func tenantCtx(tenantID string, roles ...string) context.Context {
	return tenant.With(context.Background(), tenant.Context{
		TenantID:        tenantID,
		UserID:          testUser,
		Roles:           roles,
		IsAuthenticated: true,
	})
}

func newFixture(t *testing.T, opts ...func(*ServiceParams)) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	p := ServiceParams{
		DB:      db,
		Config:  &config.Config{},
		Numbers: sequence.NewStoreGenerator(sequence.Format{}),
		Node:    node,
	}
	for _, opt := range opts {
		opt(&p)
	}

	svc := NewService(p)
	svc.now = func() time.Time { return testNow }

	f := &fixture{db: db, svc: svc, ctx: tenantCtx(testTenant, "admin")}
	f.typeID = f.seedType(t, testTenant, "Service Agreement", true)
	return f
}

func (f *fixture) seedType(t *testing.T, tenantID, name string, active bool) string {
	t.Helper()

	ct := &ContractType{
		ID:                  f.svc.nextID(),
		TenantID:            tenantID,
		Name:                name,
		Color:               "#007bff",
		IsActive:            true,
		DefaultDurationDays: 365,
		DefaultReminderDays: 45,
		CreatedAt:           testNow,
		UpdatedAt:           testNow,
	}
	require.NoError(t, f.svc.store.CreateContractType(context.Background(), ct))
	if !active {
		require.NoError(t, f.svc.store.SetContractTypeActive(context.Background(), tenantID, ct.ID, false, testUser))
	}
	return ct.ID
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func (f *fixture) createRequest() CreateContractRequest {
	return CreateContractRequest{
		ContractInput: ContractInput{
			Title:          "Website maintenance",
			ContractTypeID: f.typeID,
			StartDate:      date(2025, 1, 1),
			EndDate:        ptr(date(2025, 12, 31)),
			Currency:       "usd",
		},
		Parties: []PartyInput{
			{PartyType: PartyInternal, Name: "Acme Corp"},
			{PartyType: PartyExternal, Name: "Globex"},
		},
	}
}

func (f *fixture) create(t *testing.T) *Contract {
	t.Helper()
	c, err := f.svc.Create(f.ctx, f.createRequest())
	require.NoError(t, err)
	return c
}

// moveTo walks c through the policy to target.
func (f *fixture) moveTo(t *testing.T, c *Contract, path ...Status) *Contract {
	t.Helper()
	for _, st := range path {
		var err error
		c, err = f.svc.ChangeStatus(f.ctx, c.ID, ChangeStatusRequest{Status: string(st)})
		require.NoError(t, err, "transition to %s", st)
	}
	return c
}

// pathTo lists the transitions from Draft to each status.
var pathTo = map[Status][]Status{
	StatusDraft:           nil,
	StatusUnderReview:     {StatusUnderReview},
	StatusPendingApproval: {StatusUnderReview, StatusPendingApproval},
	StatusApproved:        {StatusUnderReview, StatusPendingApproval, StatusApproved},
	StatusActive:          {StatusUnderReview, StatusPendingApproval, StatusApproved, StatusActive},
	StatusSuspended:       {StatusUnderReview, StatusPendingApproval, StatusApproved, StatusActive, StatusSuspended},
	StatusExpired:         {StatusUnderReview, StatusPendingApproval, StatusApproved, StatusActive, StatusExpired},
	StatusTerminated:      {StatusUnderReview, StatusPendingApproval, StatusApproved, StatusActive, StatusTerminated},
	StatusRenewed:         {StatusUnderReview, StatusPendingApproval, StatusApproved, StatusActive, StatusRenewed},
	StatusCancelled:       {StatusCancelled},
}
