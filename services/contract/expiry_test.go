package contract

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"contract-lifecycle/pkg/errutil"
	"contract-lifecycle/pkg/task/mock_task"
	"contract-lifecycle/pkg/taskname"
	"contract-lifecycle/pkg/tenant"

	flagsmith "github.com/Flagsmith/flagsmith-go-client/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type taskRecorder struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (r *taskRecorder) enqueue(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
	return &asynq.TaskInfo{ID: t.Type(), Type: t.Type()}, nil
}

func (r *taskRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = nil
}

func (r *taskRecorder) ofType(name string) []*asynq.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*asynq.Task
	for _, t := range r.tasks {
		if t.Type() == name {
			out = append(out, t)
		}
	}
	return out
}

type flagsMock struct {
	enabledFn func(ctx context.Context, identifier, feature string, fallback bool) bool
}

func (m *flagsMock) Flags(ctx context.Context, identifier string, traits ...*flagsmith.Trait) (flagsmith.Flags, error) {
	return flagsmith.Flags{}, nil
}

func (m *flagsMock) Enabled(ctx context.Context, identifier, feature string, fallback bool) bool {
	if m.enabledFn != nil {
		return m.enabledFn(ctx, identifier, feature, fallback)
	}
	return fallback
}

func newEventFixture(t *testing.T, opts ...func(*ServiceParams)) (*fixture, *taskRecorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	enqueuer := mock_task.NewMockEnqueuer(ctrl)
	rec := &taskRecorder{}
	enqueuer.EXPECT().Enqueue(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(rec.enqueue).AnyTimes()

	opts = append([]func(*ServiceParams){func(p *ServiceParams) { p.Enqueuer = enqueuer }}, opts...)
	return newFixture(t, opts...), rec
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	f, rec := newEventFixture(t)

	c := f.create(t)
	created := rec.ofType(taskname.ContractCreated)
	require.Len(t, created, 1)

	var ev CreatedEvent
	require.NoError(t, json.Unmarshal(created[0].Payload(), &ev))
	require.Equal(t, c.ID, ev.ContractID)
	require.Equal(t, c.ContractNumber, ev.ContractNumber)
	require.Equal(t, testTenant, ev.TenantID)

	f.moveTo(t, c, StatusUnderReview)
	changed := rec.ofType(taskname.ContractStatusChanged)
	require.Len(t, changed, 1)

	var sc StatusChangedEvent
	require.NoError(t, json.Unmarshal(changed[0].Payload(), &sc))
	require.Equal(t, StatusDraft, sc.From)
	require.Equal(t, StatusUnderReview, sc.To)
	require.Equal(t, testUser, sc.ChangedBy)

	// Rejected transitions publish nothing.
	_, err := f.svc.ChangeStatus(f.ctx, c.ID, ChangeStatusRequest{Status: string(StatusActive)})
	require.Error(t, err)
	require.Len(t, rec.ofType(taskname.ContractStatusChanged), 1)
}

func TestEnqueueFailureDoesNotFailCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	enqueuer := mock_task.NewMockEnqueuer(ctrl)
	enqueuer.EXPECT().Enqueue(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down")).AnyTimes()

	f := newFixture(t, func(p *ServiceParams) { p.Enqueuer = enqueuer })
	c := f.create(t)
	require.Equal(t, StatusDraft, c.Status)
}

func TestSweepTenant(t *testing.T) {
	f, rec := newEventFixture(t)

	overdue := f.activeEnding(t, "overdue", -1, true)
	warned := f.activeEnding(t, "in 10 days", 10, true)
	f.activeEnding(t, "in 40 days", 40, true)
	f.activeEnding(t, "muted", 5, false)
	rec.reset()

	result, err := f.svc.SweepTenant(context.Background(), testTenant)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, 1, result.Expired)
	require.Equal(t, 1, result.Warned)

	got, err := f.svc.Get(f.ctx, overdue.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, got.Status)
	require.Equal(t, expiredReason, got.StatusChangeReason)
	require.Equal(t, tenant.SystemUserID, got.LastStatusChangedByID)

	warnings := rec.ofType(taskname.ContractExpirationWarning)
	require.Len(t, warnings, 1)
	var ev ExpirationWarningEvent
	require.NoError(t, json.Unmarshal(warnings[0].Payload(), &ev))
	require.Equal(t, warned.ID, ev.ContractID)
	require.Equal(t, 10, ev.DaysRemaining)

	require.Len(t, rec.ofType(taskname.ContractStatusChanged), 1)

	// A second sweep has nothing left to expire.
	result, err = f.svc.SweepTenant(context.Background(), testTenant)
	require.NoError(t, err)
	require.Zero(t, result.Expired)
}

func TestSweepTenantRespectsFeatureFlag(t *testing.T) {
	flags := &flagsMock{enabledFn: func(ctx context.Context, identifier, feature string, fallback bool) bool {
		require.Equal(t, testTenant, identifier)
		return false
	}}
	f := newFixture(t, func(p *ServiceParams) { p.Flags = flags })
	overdue := f.activeEnding(t, "overdue", -1, true)

	result, err := f.svc.SweepTenant(context.Background(), testTenant)
	require.NoError(t, err)
	require.True(t, result.Skipped)

	got, err := f.svc.Get(f.ctx, overdue.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)
}

func TestHandleExpiryTask(t *testing.T) {
	f := newFixture(t)
	overdue := f.activeEnding(t, "overdue", -2, true)

	err := f.svc.HandleExpiryTask(context.Background(), asynq.NewTask(taskname.ContractExpiryRun, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = f.svc.HandleExpiryTask(context.Background(), asynq.NewTask(taskname.ContractExpiryRun, []byte(`{}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	body, err := json.Marshal(ExpiryRunPayload{TenantID: testTenant, RunAt: testNow})
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleExpiryTask(context.Background(), asynq.NewTask(taskname.ContractExpiryRun, body)))

	got, err := f.svc.Get(f.ctx, overdue.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, got.Status)
}

func TestEnqueueExpirySweeps(t *testing.T) {
	f, rec := newEventFixture(t)
	f.create(t)
	otherType := f.seedType(t, "globex", "NDA", true)
	req := f.createRequest()
	req.ContractTypeID = otherType
	_, err := f.svc.Create(tenantCtx("globex", "admin"), req)
	require.NoError(t, err)
	rec.reset()

	n, err := f.svc.EnqueueExpirySweeps(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	tasks := rec.ofType(taskname.ContractExpiryRun)
	require.Len(t, tasks, 2)
	tenants := []string{}
	for _, tk := range tasks {
		var p ExpiryRunPayload
		require.NoError(t, json.Unmarshal(tk.Payload(), &p))
		tenants = append(tenants, p.TenantID)
	}
	require.ElementsMatch(t, []string{"acme", "globex"}, tenants)
}

func TestEnqueueExpirySweepsWithoutQueue(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.EnqueueExpirySweeps(context.Background(), 1)
	require.True(t, errutil.Is(err, errutil.StatusNotImplemented))
}

func TestNextRunTime(t *testing.T) {
	now := time.Date(2025, 3, 14, 0, 30, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 14, 1, 0, 0, 0, time.UTC), nextRunTime(now, 1, 0))

	now = time.Date(2025, 3, 14, 1, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC), nextRunTime(now, 1, 0))
}

func TestWorkerHandlesPublishedTasks(t *testing.T) {
	f, rec := newEventFixture(t)
	f.create(t)
	f.activeEnding(t, "overdue", -1, true)
	f.activeEnding(t, "in 10 days", 10, true)
	_, err := f.svc.SweepTenant(context.Background(), testTenant)
	require.NoError(t, err)
	_, err = f.svc.EnqueueExpirySweeps(context.Background(), 1)
	require.NoError(t, err)

	mux := asynq.NewServeMux()
	registerTaskHandlers(mux, f.svc)

	seen := map[string]bool{}
	rec.mu.Lock()
	tasks := append([]*asynq.Task(nil), rec.tasks...)
	rec.mu.Unlock()
	for _, tk := range tasks {
		require.NoError(t, mux.ProcessTask(context.Background(), tk), tk.Type())
		seen[tk.Type()] = true
	}
	for _, name := range []string{
		taskname.ContractCreated,
		taskname.ContractStatusChanged,
		taskname.ContractExpirationWarning,
		taskname.ContractExpiryRun,
	} {
		require.True(t, seen[name], name)
	}

	err = mux.ProcessTask(context.Background(), asynq.NewTask(taskname.ContractCreated, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
