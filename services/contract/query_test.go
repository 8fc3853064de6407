package contract

import (
	"testing"

	"contract-lifecycle/pkg/db/pagination"
	"contract-lifecycle/pkg/errutil"

	"github.com/stretchr/testify/require"
)

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.create(t)
	}

	page, err := f.svc.List(f.ctx, ListRequest{Pagination: pagination.Pagination{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.TotalCount)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)

	_, err = f.svc.List(f.ctx, ListRequest{Status: "archived"})
	require.True(t, errutil.Is(err, errutil.StatusInvalidArgument))

	page, err = f.svc.List(f.ctx, ListRequest{Status: "draft"})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.TotalCount)
}

func (f *fixture) activeEnding(t *testing.T, title string, end int, notifications bool) *Contract {
	t.Helper()
	req := f.createRequest()
	req.Title = title
	req.StartDate = date(2024, 1, 1)
	req.EndDate = ptr(testNow.AddDate(0, 0, end))
	req.NotificationsEnabled = ptr(notifications)
	req.RenewalReminderDays = 30

	c, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)
	return f.moveTo(t, c, pathTo[StatusActive]...)
}

func TestListExpiring(t *testing.T) {
	f := newFixture(t)
	f.activeEnding(t, "in 20 days", 20, true)
	f.activeEnding(t, "in 5 days", 5, true)
	f.activeEnding(t, "in 60 days", 60, true)
	f.activeEnding(t, "muted", 10, false)
	f.create(t)

	items, err := f.svc.ListExpiring(f.ctx, 30)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "in 5 days", items[0].Title)
	require.Equal(t, "in 20 days", items[1].Title)

	items, err = f.svc.ListExpiring(f.ctx, 0)
	require.NoError(t, err)
	require.Empty(t, items)

	// Contracts past their end date stay visible until they are expired.
	f.activeEnding(t, "overdue", -3, true)
	items, err = f.svc.ListExpiring(f.ctx, 30)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "overdue", items[0].Title)

	items, err = f.svc.ListExpiring(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "overdue", items[0].Title)

	_, err = f.svc.ListExpiring(f.ctx, -1)
	require.True(t, errutil.Is(err, errutil.StatusInvalidArgument))
}

func TestListActiveAndByType(t *testing.T) {
	f := newFixture(t)
	active := f.activeEnding(t, "active", 90, true)
	f.create(t)

	nda := f.seedType(t, testTenant, "NDA", true)
	req := f.createRequest()
	req.ContractTypeID = nda
	_, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)

	items, err := f.svc.ListActive(f.ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, active.ID, items[0].ID)

	items, err = f.svc.ListByType(f.ctx, nda)
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = f.svc.ListByType(f.ctx, "unknown")
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestStatusOptions(t *testing.T) {
	f := newFixture(t)
	c := f.create(t)

	opts, err := f.svc.StatusOptions(f.ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, opts.Current.Status)
	require.True(t, opts.IsEditable)
	require.False(t, opts.IsFinalized)
	require.True(t, opts.CanBeDeleted)
	require.Len(t, opts.Next, 2)
	require.Equal(t, StatusUnderReview, opts.Next[0].Status)
	require.Equal(t, "Under Review", opts.Next[0].DisplayName)

	c = f.moveTo(t, c, StatusCancelled)
	opts, err = f.svc.StatusOptions(f.ctx, c.ID)
	require.NoError(t, err)
	require.True(t, opts.IsFinalized)
	require.False(t, opts.CanBeDeleted)
	require.NotNil(t, opts.Next)
	require.Empty(t, opts.Next)

	_, err = f.svc.StatusOptions(f.ctx, "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	f.activeEnding(t, "soon", 3, true)
	f.activeEnding(t, "this month", 20, true)
	f.activeEnding(t, "later", 200, true)
	f.activeEnding(t, "overdue", -2, true)
	f.create(t)

	stats, err := f.svc.DashboardStats(f.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), stats.TotalContracts)
	require.Equal(t, int64(4), stats.ActiveContracts)
	require.Equal(t, int64(3), stats.ExpiringIn30)
	require.Equal(t, int64(2), stats.ExpiringIn7)
	require.Equal(t, int64(1), stats.ByStatus[StatusDraft])
	require.Len(t, stats.ByStatus, len(AllStatuses))
}
