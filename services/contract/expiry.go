package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contract-lifecycle/pkg/errutil"
	"contract-lifecycle/pkg/featureflags"
	applog "contract-lifecycle/pkg/logger"
	"contract-lifecycle/pkg/taskname"
	"contract-lifecycle/pkg/tenant"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepResult counts what one tenant sweep did.
type SweepResult struct {
	Skipped bool `json:"skipped"`
	Expired int  `json:"expired"`
	Warned  int  `json:"warned"`
}

func (s *Service) autoExpiryEnabled(ctx context.Context, tenantID string) bool {
	if s.flags == nil {
		return true
	}
	return s.flags.Enabled(ctx, tenantID, featureflags.ContractAutoExpiry, true)
}

// SweepTenant expires Active contracts of tenantID whose end date has passed
// and warns about those entering their reminder window. Each expiry is its
// own status change, so one failure does not block the others.
func (s *Service) SweepTenant(ctx context.Context, tenantID string) (SweepResult, error) {
	var result SweepResult
	if !s.autoExpiryEnabled(ctx, tenantID) {
		result.Skipped = true
		return result, nil
	}

	ctx = tenant.With(ctx, tenant.System(tenantID))
	log := applog.FromContext(ctx)
	now := s.now().UTC()

	due, _, err := s.store.ListContracts(ctx, tenantID, ListFilter{
		Statuses: []Status{StatusActive},
		EndUntil: &now,
	}, nil)
	if err != nil {
		return result, storeError("list expired contracts", err)
	}

	var errs []error
	for _, c := range due {
		_, err := s.ChangeStatus(ctx, c.ID, ChangeStatusRequest{
			Status: string(StatusExpired),
			Reason: expiredReason,
		})
		switch {
		case err == nil:
			result.Expired++
		case errutil.Is(err, errutil.StatusInvalidTransition), errutil.Is(err, errutil.StatusNotFound):
			log.Info("contract changed before expiry", zap.String("contract_id", c.ID), zap.Error(err))
		default:
			errs = append(errs, fmt.Errorf("expire %s: %w", c.ID, err))
		}
	}

	horizon := now.AddDate(0, 0, MaxReminderDays)
	upcoming, _, err := s.store.ListContracts(ctx, tenantID, ListFilter{
		Statuses:       []Status{StatusActive},
		EndFrom:        &now,
		EndUntil:       &horizon,
		Notifications:  true,
		OrderByEndDate: true,
	}, nil)
	if err != nil {
		errs = append(errs, storeError("list expiring contracts", err))
	}
	for i := range upcoming {
		c := &upcoming[i]
		if c.EndDate.After(now.AddDate(0, 0, c.RenewalReminderDays)) {
			continue
		}
		s.events.expirationWarning(ctx, c, now)
		result.Warned++
	}

	log.Info("contract expiry sweep finished",
		zap.Int("expired", result.Expired),
		zap.Int("warned", result.Warned),
		zap.Int("failed", len(errs)),
	)
	return result, errors.Join(errs...)
}

// HandleExpiryTask is the asynq handler for taskname.ContractExpiryRun.
func (s *Service) HandleExpiryTask(ctx context.Context, t *asynq.Task) error {
	var payload ExpiryRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid expiry payload", zap.Error(err))
		return fmt.Errorf("decode expiry payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.TenantID == "" {
		return fmt.Errorf("expiry payload without tenant: %w", asynq.SkipRetry)
	}

	zap.L().Info("Processing contract expiry task", zap.String("tenant_id", payload.TenantID))
	_, err := s.SweepTenant(ctx, payload.TenantID)
	return err
}

// EnqueueExpirySweeps enqueues one sweep task per tenant owning contracts.
func (s *Service) EnqueueExpirySweeps(ctx context.Context, workers int) (int, error) {
	if s.events.enqueuer == nil {
		return 0, errutil.NotImplemented("task queue is not configured", nil)
	}

	tenants, err := s.store.ListTenantIDs(ctx)
	if err != nil {
		return 0, storeError("list tenants", err)
	}

	now := s.now().UTC()
	day := now.Format("20060102")

	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, tenantID := range tenants {
		tenantID := tenantID
		g.Go(func() error {
			body, err := json.Marshal(ExpiryRunPayload{TenantID: tenantID, RunAt: now})
			if err != nil {
				return err
			}
			_, err = s.events.enqueuer.Enqueue(gctx,
				asynq.NewTask(taskname.ContractExpiryRun, body),
				asynq.Queue(taskname.QueueLow),
				asynq.TaskID(taskname.ContractExpiryRun+":"+tenantID+":"+day),
				asynq.MaxRetry(3),
			)
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				return nil
			}
			if err != nil {
				zap.L().Error("failed enqueue expiry sweep", zap.String("tenant_id", tenantID), zap.Error(err))
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return len(tenants), err
	}
	return len(tenants), nil
}
