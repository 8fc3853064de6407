package contract

import (
	"context"
	"time"

	"contract-lifecycle/pkg/db/pagination"
	"contract-lifecycle/pkg/errutil"
	"contract-lifecycle/pkg/tenant"
)

// ListRequest filters the paged contract listing.
type ListRequest struct {
	Search string `form:"search"`
	Status string `form:"status"`
	pagination.Pagination
}

type StatusOption struct {
	Status      Status `json:"status"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type StatusOptions struct {
	Current      StatusOption   `json:"current"`
	Next         []StatusOption `json:"next"`
	IsEditable   bool           `json:"is_editable"`
	IsFinalized  bool           `json:"is_finalized"`
	CanBeDeleted bool           `json:"can_be_deleted"`
}

type DashboardStats struct {
	TotalContracts  int64            `json:"total_contracts"`
	ActiveContracts int64            `json:"active_contracts"`
	ExpiringIn30    int64            `json:"expiring_in_30_days"`
	ExpiringIn7     int64            `json:"expiring_in_7_days"`
	ByStatus        map[Status]int64 `json:"by_status"`
}

func statusOption(s Status) StatusOption {
	return StatusOption{
		Status:      s,
		DisplayName: s.DisplayName(),
		Description: s.Description(),
		Color:       s.Color(),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Contract, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.store.GetContract(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError("load contract", err)
	}
	return c, nil
}

// List returns one page of contracts, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) (pagination.Page[Contract], error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return pagination.Page[Contract]{}, err
	}

	filter := ListFilter{Search: req.Search}
	if req.Status != "" {
		st, err := ParseStatus(req.Status)
		if err != nil {
			return pagination.Page[Contract]{}, errutil.InvalidArgument(err.Error(), nil,
				errutil.WithDetails(detail("status", "unknown status")))
		}
		filter.Statuses = []Status{st}
	}

	page := req.Pagination.Normalize()
	items, total, err := s.store.ListContracts(ctx, tc.TenantID, filter, &page)
	if err != nil {
		return pagination.Page[Contract]{}, storeError("list contracts", err)
	}
	return pagination.NewPage(items, total, page), nil
}

func (s *Service) listAll(ctx context.Context, filter ListFilter) ([]Contract, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	items, _, err := s.store.ListContracts(ctx, tc.TenantID, filter, nil)
	if err != nil {
		return nil, storeError("list contracts", err)
	}
	if items == nil {
		items = []Contract{}
	}
	return items, nil
}

func (s *Service) ListByType(ctx context.Context, contractTypeID string) ([]Contract, error) {
	return s.listAll(ctx, ListFilter{ContractTypeID: contractTypeID})
}

func (s *Service) ListActive(ctx context.Context) ([]Contract, error) {
	return s.listAll(ctx, ListFilter{Statuses: []Status{StatusActive}})
}

// ListExpiring returns Active contracts with notifications enabled whose end
// date is at most daysAhead days from now, soonest first. Active contracts
// already past their end date are included and come first.
func (s *Service) ListExpiring(ctx context.Context, daysAhead int) ([]Contract, error) {
	if daysAhead < 0 {
		return nil, errutil.InvalidArgument("days ahead must not be negative", nil,
			errutil.WithDetails(detail("days", "days ahead must not be negative")))
	}

	now := s.now().UTC()
	until := now.AddDate(0, 0, daysAhead)
	return s.listAll(ctx, ListFilter{
		Statuses:       []Status{StatusActive},
		EndUntil:       &until,
		Notifications:  true,
		OrderByEndDate: true,
	})
}

// Children returns the contracts whose parent is id.
func (s *Service) Children(ctx context.Context, id string) ([]Contract, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.listAll(ctx, ListFilter{ParentID: id})
}

// StatusOptions describes the current status of a contract and the statuses
// it may move to.
func (s *Service) StatusOptions(ctx context.Context, id string) (*StatusOptions, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	hasChildren, err := s.store.HasChildren(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError("load children", err)
	}

	opts := &StatusOptions{
		Current:      statusOption(c.Status),
		Next:         []StatusOption{},
		IsEditable:   c.Status.IsEditable(),
		IsFinalized:  c.Status.IsFinalized(),
		CanBeDeleted: !hasChildren && !c.Status.IsFinalized(),
	}
	for _, next := range c.Status.NextStatuses() {
		opts.Next = append(opts.Next, statusOption(next))
	}
	return opts, nil
}

// DashboardStats summarizes the tenant's contracts.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	count := func(f ListFilter) (int64, error) {
		n, err := s.store.CountContracts(ctx, tc.TenantID, f)
		if err != nil {
			return 0, storeError("count contracts", err)
		}
		return n, nil
	}
	expiring := func(days int) ListFilter {
		until := now.Add(time.Duration(days) * 24 * time.Hour)
		return ListFilter{Statuses: []Status{StatusActive}, EndUntil: &until}
	}

	stats := &DashboardStats{ByStatus: make(map[Status]int64, len(AllStatuses))}
	if stats.TotalContracts, err = count(ListFilter{}); err != nil {
		return nil, err
	}
	if stats.ExpiringIn30, err = count(expiring(30)); err != nil {
		return nil, err
	}
	if stats.ExpiringIn7, err = count(expiring(7)); err != nil {
		return nil, err
	}
	for _, st := range AllStatuses {
		n, err := count(ListFilter{Statuses: []Status{st}})
		if err != nil {
			return nil, err
		}
		stats.ByStatus[st] = n
	}
	stats.ActiveContracts = stats.ByStatus[StatusActive]
	return stats, nil
}
