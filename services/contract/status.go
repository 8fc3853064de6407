package contract

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusDraft           Status = "Draft"
	StatusUnderReview     Status = "UnderReview"
	StatusPendingApproval Status = "PendingApproval"
	StatusApproved        Status = "Approved"
	StatusActive          Status = "Active"
	StatusSuspended       Status = "Suspended"
	StatusExpired         Status = "Expired"
	StatusTerminated      Status = "Terminated"
	StatusRenewed         Status = "Renewed"
	StatusCancelled       Status = "Cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusDraft,
	StatusUnderReview,
	StatusPendingApproval,
	StatusApproved,
	StatusActive,
	StatusSuspended,
	StatusExpired,
	StatusTerminated,
	StatusRenewed,
	StatusCancelled,
}

var transitions = map[Status][]Status{
	StatusDraft:           {StatusUnderReview, StatusCancelled},
	StatusUnderReview:     {StatusDraft, StatusPendingApproval, StatusCancelled},
	StatusPendingApproval: {StatusUnderReview, StatusApproved, StatusCancelled},
	StatusApproved:        {StatusActive, StatusCancelled},
	StatusActive:          {StatusSuspended, StatusExpired, StatusTerminated, StatusRenewed},
	StatusSuspended:       {StatusActive, StatusTerminated, StatusCancelled},
	StatusExpired:         {StatusRenewed},
}

type statusInfo struct {
	display     string
	description string
	color       string
}

var statusInfos = map[Status]statusInfo{
	StatusDraft:           {"Draft", "Contract is being prepared", "#6c757d"},
	StatusUnderReview:     {"Under Review", "Contract is under internal review", "#fd7e14"},
	StatusPendingApproval: {"Pending Approval", "Contract is awaiting approval", "#ffc107"},
	StatusApproved:        {"Approved", "Contract has been approved", "#20c997"},
	StatusActive:          {"Active", "Contract is in effect", "#28a745"},
	StatusSuspended:       {"Suspended", "Contract is temporarily suspended", "#6f42c1"},
	StatusExpired:         {"Expired", "Contract end date has passed", "#dc3545"},
	StatusTerminated:      {"Terminated", "Contract was terminated early", "#dc3545"},
	StatusRenewed:         {"Renewed", "Contract was replaced by a renewal", "#17a2b8"},
	StatusCancelled:       {"Cancelled", "Contract was cancelled", "#6c757d"},
}

func (s Status) IsValid() bool {
	_, ok := statusInfos[s]
	return ok
}

// NextStatuses returns the statuses reachable from s in one transition.
func (s Status) NextStatuses() []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsEditable reports whether the contract's terms may still be changed.
func (s Status) IsEditable() bool {
	return s == StatusDraft || s == StatusUnderReview
}

func (s Status) IsFinalized() bool {
	switch s {
	case StatusExpired, StatusTerminated, StatusCancelled, StatusRenewed:
		return true
	}
	return false
}

func (s Status) DisplayName() string {
	if info, ok := statusInfos[s]; ok {
		return info.display
	}
	return string(s)
}

func (s Status) Description() string {
	return statusInfos[s].description
}

func (s Status) Color() string {
	if info, ok := statusInfos[s]; ok {
		return info.color
	}
	return "#6c757d"
}

// ParseStatus accepts a status name in any case, with or without spaces,
// underscores or hyphens ("under review", "PENDING_APPROVAL").
func ParseStatus(v string) (Status, error) {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(v))
	for _, s := range AllStatuses {
		if strings.EqualFold(string(s), key) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown contract status %q", v)
}

// TransitionError reports a status change the policy does not allow.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition contract from %s to %s", e.From, e.To)
}

// Transition describes a requested status change.
type Transition struct {
	To      Status
	ActorID string
	At      time.Time
	Reason  string
	Notes   string
}

// ApplyTransition validates t against the policy and, when legal, applies
// the status change and its side effects to c. On error c is untouched.
func ApplyTransition(c *Contract, t Transition) error {
	if !c.Status.CanTransitionTo(t.To) {
		return &TransitionError{From: c.Status, To: t.To}
	}
	applyStatus(c, t)
	return nil
}

// applyStatus performs the bookkeeping of a status change without consulting
// the transition table.
func applyStatus(c *Contract, t Transition) {
	at := t.At.UTC()

	switch t.To {
	case StatusActive:
		if c.SignedDate == nil {
			c.SignedDate = &at
		}
	case StatusApproved:
		actor := t.ActorID
		c.ApprovedByID = &actor
		c.ApprovedDate = &at
		c.ApprovalNotes = t.Notes
	}

	c.Status = t.To
	c.LastStatusChangeDate = at
	c.LastStatusChangedByID = t.ActorID
	c.StatusChangeReason = t.Reason
	c.UpdatedAt = at
	c.UpdatedBy = t.ActorID
}

// statusColumns lists the columns a status change may touch.
func statusColumns(c *Contract) map[string]interface{} {
	return map[string]interface{}{
		"status":                    c.Status,
		"signed_date":               c.SignedDate,
		"approved_by_id":            c.ApprovedByID,
		"approved_date":             c.ApprovedDate,
		"approval_notes":            c.ApprovalNotes,
		"last_status_change_date":   c.LastStatusChangeDate,
		"last_status_changed_by_id": c.LastStatusChangedByID,
		"status_change_reason":      c.StatusChangeReason,
		"updated_at":                c.UpdatedAt,
		"updated_by":                c.UpdatedBy,
	}
}
