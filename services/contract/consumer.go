package contract

import (
	"context"
	"encoding/json"
	"fmt"

	"contract-lifecycle/pkg/taskname"
	"contract-lifecycle/pkg/tenant"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// decodeEvent reads a task payload into v. Malformed payloads are never
// retried.
func decodeEvent(t *asynq.Task, v interface{}) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		zap.L().Error("invalid contract event payload", zap.String("task_type", t.Type()), zap.Error(err))
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

// HandleCreatedEvent records the contract:created audit entry.
func (s *Service) HandleCreatedEvent(ctx context.Context, t *asynq.Task) error {
	var ev CreatedEvent
	if err := decodeEvent(t, &ev); err != nil {
		return err
	}

	zap.L().Info("contract created",
		zap.String("tenant_id", ev.TenantID),
		zap.String("contract_id", ev.ContractID),
		zap.String("contract_number", ev.ContractNumber),
		zap.String("created_by", ev.CreatedBy),
		zap.Time("occurred_at", ev.OccurredAt),
	)
	eventsConsumed.WithLabelValues(t.Type()).Inc()
	return nil
}

// HandleStatusChangedEvent records the contract:status_changed audit entry.
func (s *Service) HandleStatusChangedEvent(ctx context.Context, t *asynq.Task) error {
	var ev StatusChangedEvent
	if err := decodeEvent(t, &ev); err != nil {
		return err
	}

	log := zap.L().Info
	if ev.ChangedBy == tenant.SystemUserID {
		log = zap.L().Debug
	}
	log("contract status changed",
		zap.String("tenant_id", ev.TenantID),
		zap.String("contract_id", ev.ContractID),
		zap.String("contract_number", ev.ContractNumber),
		zap.String("from", string(ev.From)),
		zap.String("to", string(ev.To)),
		zap.String("reason", ev.Reason),
		zap.String("changed_by", ev.ChangedBy),
	)
	eventsConsumed.WithLabelValues(t.Type()).Inc()
	return nil
}

// HandleExpirationWarningEvent emits the reminder for a contract entering
// its renewal window.
func (s *Service) HandleExpirationWarningEvent(ctx context.Context, t *asynq.Task) error {
	var ev ExpirationWarningEvent
	if err := decodeEvent(t, &ev); err != nil {
		return err
	}

	zap.L().Warn("contract expiring soon",
		zap.String("tenant_id", ev.TenantID),
		zap.String("contract_id", ev.ContractID),
		zap.String("contract_number", ev.ContractNumber),
		zap.String("title", ev.Title),
		zap.Time("end_date", ev.EndDate),
		zap.Int("days_remaining", ev.DaysRemaining),
	)
	eventsConsumed.WithLabelValues(t.Type()).Inc()
	return nil
}

// TaskHandlers maps every task type the service publishes or schedules to
// its handler.
func (s *Service) TaskHandlers() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		taskname.ContractCreated:           s.HandleCreatedEvent,
		taskname.ContractStatusChanged:     s.HandleStatusChangedEvent,
		taskname.ContractExpirationWarning: s.HandleExpirationWarningEvent,
		taskname.ContractExpiryRun:         s.HandleExpiryTask,
	}
}
