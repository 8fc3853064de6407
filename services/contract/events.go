package contract

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	applog "contract-lifecycle/pkg/logger"
	"contract-lifecycle/pkg/task"
	"contract-lifecycle/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type CreatedEvent struct {
	TenantID       string    `json:"tenant_id"`
	ContractID     string    `json:"contract_id"`
	ContractNumber string    `json:"contract_number"`
	Title          string    `json:"title"`
	CreatedBy      string    `json:"created_by"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type StatusChangedEvent struct {
	TenantID       string    `json:"tenant_id"`
	ContractID     string    `json:"contract_id"`
	ContractNumber string    `json:"contract_number"`
	From           Status    `json:"from"`
	To             Status    `json:"to"`
	Reason         string    `json:"reason,omitempty"`
	ChangedBy      string    `json:"changed_by"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type ExpirationWarningEvent struct {
	TenantID       string    `json:"tenant_id"`
	ContractID     string    `json:"contract_id"`
	ContractNumber string    `json:"contract_number"`
	Title          string    `json:"title"`
	EndDate        time.Time `json:"end_date"`
	DaysRemaining  int       `json:"days_remaining"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ExpiryRunPayload asks a worker to sweep one tenant.
type ExpiryRunPayload struct {
	TenantID string    `json:"tenant_id"`
	RunAt    time.Time `json:"run_at"`
}

// publisher enqueues domain events once the owning transaction committed.
// Delivery failures are logged and never undo the committed change.
type publisher struct {
	enqueuer task.Enqueuer
}

func (p publisher) publish(ctx context.Context, name string, payload interface{}, opts ...asynq.Option) {
	if p.enqueuer == nil {
		return
	}

	log := applog.FromContext(ctx).With(zap.String("task_type", name))

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to encode contract event", zap.Error(err))
		return
	}

	opts = append([]asynq.Option{asynq.Queue(taskname.QueueDefault), asynq.MaxRetry(5)}, opts...)
	if _, err := p.enqueuer.Enqueue(ctx, asynq.NewTask(name, body), opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Debug("contract event already enqueued")
			return
		}
		log.Error("failed to enqueue contract event", zap.Error(err))
	}
}

func (p publisher) created(ctx context.Context, c *Contract) {
	p.publish(ctx, taskname.ContractCreated, CreatedEvent{
		TenantID:       c.TenantID,
		ContractID:     c.ID,
		ContractNumber: c.ContractNumber,
		Title:          c.Title,
		CreatedBy:      c.CreatedBy,
		OccurredAt:     c.CreatedAt,
	})
}

func (p publisher) statusChanged(ctx context.Context, c *Contract, from Status) {
	p.publish(ctx, taskname.ContractStatusChanged, StatusChangedEvent{
		TenantID:       c.TenantID,
		ContractID:     c.ID,
		ContractNumber: c.ContractNumber,
		From:           from,
		To:             c.Status,
		Reason:         c.StatusChangeReason,
		ChangedBy:      c.LastStatusChangedByID,
		OccurredAt:     c.LastStatusChangeDate,
	})
}

func (p publisher) expirationWarning(ctx context.Context, c *Contract, now time.Time) {
	if c.EndDate == nil {
		return
	}
	days := int(c.EndDate.Sub(now).Hours() / 24)
	// One warning per contract and day even when sweeps overlap.
	id := taskname.ContractExpirationWarning + ":" + c.ID + ":" + now.UTC().Format("20060102")
	p.publish(ctx, taskname.ContractExpirationWarning, ExpirationWarningEvent{
		TenantID:       c.TenantID,
		ContractID:     c.ID,
		ContractNumber: c.ContractNumber,
		Title:          c.Title,
		EndDate:        *c.EndDate,
		DaysRemaining:  days,
		OccurredAt:     now,
	}, asynq.TaskID(id), asynq.Queue(taskname.QueueLow))
}
