package contract

import (
	"context"
	"errors"
	"strings"
	"time"

	"contract-lifecycle/pkg/config"
	"contract-lifecycle/pkg/db"
	"contract-lifecycle/pkg/errutil"
	"contract-lifecycle/pkg/featureflags"
	applog "contract-lifecycle/pkg/logger"
	"contract-lifecycle/pkg/sequence"
	"contract-lifecycle/pkg/task"
	"contract-lifecycle/pkg/tenant"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const defaultNumberRetries = 5

// ErrNumberExhausted is wrapped by the Conflict returned when no unique
// contract number could be allocated.
var ErrNumberExhausted = errors.New("contract number retries exhausted")

type Service struct {
	db        *gorm.DB
	store     Store
	numbers   sequence.Generator
	node      *snowflake.Node
	events    publisher
	documents DocumentStorage
	flags     featureflags.FeatureFlag
	retries   int
	now       func() time.Time
	types     singleflight.Group
}

type ServiceParams struct {
	fx.In

	DB        *gorm.DB
	Config    *config.Config
	Numbers   sequence.Generator
	Node      *snowflake.Node
	Enqueuer  task.Enqueuer            `optional:"true"`
	Documents DocumentStorage          `optional:"true"`
	Flags     featureflags.FeatureFlag `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	retries := defaultNumberRetries
	if p.Config != nil && p.Config.Contract.NumberRetries > 0 {
		retries = p.Config.Contract.NumberRetries
	}

	return &Service{
		db:        p.DB,
		store:     NewStore(p.DB),
		numbers:   p.Numbers,
		node:      p.Node,
		events:    publisher{enqueuer: p.Enqueuer},
		documents: p.Documents,
		flags:     p.Flags,
		retries:   retries,
		now:       time.Now,
	}
}

// ChangeStatusRequest names the target status and optional context.
type ChangeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type SignPartyRequest struct {
	SignedByName  string `json:"signed_by_name"`
	SignedByTitle string `json:"signed_by_title"`
}

// storeError classifies a persistence failure. Classified errors pass
// through unchanged.
func storeError(msg string, err error) error {
	var base errutil.BaseError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &base):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errutil.NotFound(msg+": not found", err)
	case errors.Is(err, ErrStaleVersion):
		return errutil.Conflict("contract was modified concurrently, retry the request", err)
	case errors.Is(err, context.Canceled):
		return errutil.ClientClosedRequest(msg+": canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return errutil.Timeout(msg+": deadline exceeded", err)
	default:
		return errutil.Infrastructure(msg, err)
	}
}

func (s *Service) nextID() string {
	return s.node.Generate().String()
}

// contractType loads a contract type of the tenant, collapsing concurrent
// lookups of the same type.
func (s *Service) contractType(ctx context.Context, tenantID, id string) (*ContractType, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errutil.InvalidReference("contract type is required", nil,
			errutil.WithDetails(detail("contract_type_id", "contract type is required")))
	}

	// The shared lookup must not inherit one caller's cancellation; each
	// caller still stops waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := s.types.DoChan(tenantID+"/"+id, func() (interface{}, error) {
		return s.store.GetContractType(shared, tenantID, id)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, storeError("load contract type", ctx.Err())
	case res = <-ch:
	}

	err := res.Err
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.InvalidReference("contract type not found", err,
			errutil.WithDetails(detail("contract_type_id", "contract type not found")))
	}
	if err != nil {
		return nil, storeError("load contract type", err)
	}
	ct := *res.Val.(*ContractType)
	return &ct, nil
}

func (s *Service) activeContractType(ctx context.Context, tenantID, id string) (*ContractType, error) {
	ct, err := s.contractType(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !ct.IsActive {
		return nil, errutil.InvalidReference("contract type is inactive", nil,
			errutil.WithDetails(detail("contract_type_id", "contract type is inactive")))
	}
	return ct, nil
}

// prepareCreate validates a draft and returns its normalized terms.
func (s *Service) prepareCreate(ctx context.Context, tenantID string, req CreateContractRequest) (ContractInput, error) {
	ct, err := s.activeContractType(ctx, tenantID, req.ContractTypeID)
	if err != nil {
		return ContractInput{}, err
	}

	in := req.ContractInput.normalize(ct)
	details := validateTerms(in)
	details = append(details, validateParties(req.Parties)...)
	if len(details) > 0 {
		return ContractInput{}, invalidArgument(details)
	}

	if req.ParentContractID != nil && *req.ParentContractID != "" {
		ok, err := s.store.ContractExists(ctx, tenantID, *req.ParentContractID)
		if err != nil {
			return ContractInput{}, storeError("load parent contract", err)
		}
		if !ok {
			return ContractInput{}, errutil.InvalidReference("parent contract not found", nil,
				errutil.WithDetails(detail("parent_contract_id", "parent contract not found")))
		}
	}
	return in, nil
}

func (s *Service) buildContract(tc tenant.Context, in ContractInput, req CreateContractRequest, now time.Time) *Contract {
	c := &Contract{
		ID:                      s.nextID(),
		TenantID:                tc.TenantID,
		Title:                   in.Title,
		Description:             in.Description,
		ContractTypeID:          in.ContractTypeID,
		Status:                  StatusDraft,
		Priority:                in.Priority,
		StartDate:               in.StartDate,
		EndDate:                 in.EndDate,
		Value:                   in.Value,
		Currency:                in.Currency,
		BillingFrequency:        in.BillingFrequency,
		AutoRenewal:             in.AutoRenewal,
		RenewalReminderDays:     in.RenewalReminderDays,
		AutoRenewalDurationDays: in.AutoRenewalDurationDays,
		Terms:                   in.Terms,
		InternalNotes:           in.InternalNotes,
		Tags:                    in.Tags,
		CustomFields:            in.CustomFields,
		Department:              in.Department,
		ProjectCode:             in.ProjectCode,
		OwnerID:                 in.OwnerID,
		NotificationsEnabled:    in.notificationsEnabled(),
		LastStatusChangeDate:    now,
		LastStatusChangedByID:   tc.UserID,
		Version:                 1,
		CreatedAt:               now,
		CreatedBy:               tc.UserID,
		UpdatedAt:               now,
		UpdatedBy:               tc.UserID,
	}
	if req.ParentContractID != nil && *req.ParentContractID != "" {
		parent := *req.ParentContractID
		c.ParentContractID = &parent
	}

	c.Parties = make([]ContractParty, 0, len(req.Parties))
	for _, p := range req.Parties {
		requiresSignature := p.RequiresSignature == nil || *p.RequiresSignature
		c.Parties = append(c.Parties, ContractParty{
			ID:                 s.nextID(),
			TenantID:           tc.TenantID,
			PartyType:          p.PartyType,
			Name:               strings.TrimSpace(p.Name),
			LegalName:          p.LegalName,
			ContactPersonName:  p.ContactPersonName,
			ContactPersonTitle: p.ContactPersonTitle,
			Email:              p.Email,
			Phone:              p.Phone,
			AddressLine1:       p.AddressLine1,
			AddressLine2:       p.AddressLine2,
			City:               p.City,
			State:              p.State,
			PostalCode:         p.PostalCode,
			Country:            p.Country,
			TaxID:              p.TaxID,
			RegistrationNumber: p.RegistrationNumber,
			Website:            p.Website,
			RequiresSignature:  requiresSignature,
			Notes:              p.Notes,
			SortOrder:          p.SortOrder,
			CreatedAt:          now,
			CreatedBy:          tc.UserID,
			UpdatedAt:          now,
			UpdatedBy:          tc.UserID,
		})
	}
	return c
}

// insertNumbered allocates a contract number for c and inserts it inside tx.
func (s *Service) insertNumbered(ctx context.Context, tx *gorm.DB, c *Contract) error {
	number, err := s.numbers.NextContractNumber(ctx, tx, c.TenantID, c.CreatedAt)
	if err != nil {
		return storeError("generate contract number", err)
	}
	c.ContractNumber = number
	return s.store.WithTrx(tx).CreateContract(ctx, c)
}

// withNumberRetry runs fn in a fresh transaction, repeating it when the
// contract number it inserted collided with a concurrent writer.
func (s *Service) withNumberRetry(ctx context.Context, tenantID string, at time.Time, fn func(tx *gorm.DB) error) error {
	log := applog.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		err := s.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err) {
			return storeError("save contract", err)
		}

		lastErr = err
		numberCollisions.Inc()
		log.Warn("contract number collision, retrying", zap.Int("attempt", attempt), zap.Error(err))

		if inv, ok := s.numbers.(sequence.Invalidator); ok {
			if err := inv.Invalidate(ctx, tenantID, at); err != nil {
				log.Warn("failed to invalidate sequence counter", zap.Error(err))
			}
		}
	}
	return errutil.Conflict("could not allocate a unique contract number", errors.Join(ErrNumberExhausted, lastErr))
}

// Create stores a new Draft contract with its parties under a freshly
// generated contract number. Parties come back ordered by SortOrder, ties
// keeping their submission position, so unset or increasing SortOrder
// values preserve the submitted order.
func (s *Service) Create(ctx context.Context, req CreateContractRequest) (*Contract, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	in, err := s.prepareCreate(ctx, tc.TenantID, req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var created *Contract
	err = s.withNumberRetry(ctx, tc.TenantID, now, func(tx *gorm.DB) error {
		c := s.buildContract(tc, in, req, now)
		if err := s.insertNumbered(ctx, tx, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	contractsCreated.Inc()
	applog.FromContext(ctx).Info("contract created",
		zap.String("contract_id", created.ID),
		zap.String("contract_number", created.ContractNumber),
	)
	s.events.created(ctx, created)

	return s.Get(ctx, created.ID)
}

// Update replaces the editable terms of a Draft or UnderReview contract.
// Status, number, signature, approval and deletion fields are never touched.
func (s *Service) Update(ctx context.Context, id string, req UpdateContractRequest) (*Contract, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetContract(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError("load contract", err)
	}
	if !existing.Status.IsEditable() {
		return nil, errutil.InvalidState("contract can only be edited in Draft or UnderReview", nil)
	}

	ct, err := s.contractType(ctx, tc.TenantID, req.ContractTypeID)
	if err != nil {
		return nil, err
	}
	if !ct.IsActive && ct.ID != existing.ContractTypeID {
		return nil, errutil.InvalidReference("contract type is inactive", nil,
			errutil.WithDetails(detail("contract_type_id", "contract type is inactive")))
	}

	in := req.ContractInput.normalize(ct)
	if details := validateTerms(in); len(details) > 0 {
		return nil, invalidArgument(details)
	}

	now := s.now().UTC()
	fields := map[string]interface{}{
		"title":                      in.Title,
		"description":                in.Description,
		"contract_type_id":           in.ContractTypeID,
		"priority":                   in.Priority,
		"start_date":                 in.StartDate,
		"end_date":                   in.EndDate,
		"value":                      in.Value,
		"currency":                   in.Currency,
		"billing_frequency":          in.BillingFrequency,
		"auto_renewal":               in.AutoRenewal,
		"renewal_reminder_days":      in.RenewalReminderDays,
		"auto_renewal_duration_days": in.AutoRenewalDurationDays,
		"terms":                      in.Terms,
		"internal_notes":             in.InternalNotes,
		"tags":                       in.Tags,
		"custom_fields":              in.CustomFields,
		"department":                 in.Department,
		"project_code":               in.ProjectCode,
		"owner_id":                   in.OwnerID,
		"notifications_enabled":      in.notificationsEnabled(),
		"updated_at":                 now,
		"updated_by":                 tc.UserID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		locked, err := store.GetContractForUpdate(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		if !locked.Status.IsEditable() {
			return errutil.InvalidState("contract can only be edited in Draft or UnderReview", nil)
		}
		return store.UpdateContract(ctx, tc.TenantID, id, locked.Version, fields)
	})
	if err != nil {
		return nil, storeError("update contract", err)
	}

	return s.Get(ctx, id)
}

// ChangeStatus moves a contract to newStatus when the policy allows it. The
// current status is re-read under a row lock in the writing transaction.
func (s *Service) ChangeStatus(ctx context.Context, id string, req ChangeStatusRequest) (*Contract, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	var from Status
	var changed *Contract
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		c, err := store.GetContractForUpdate(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}

		to, err := ParseStatus(req.Status)
		if err != nil {
			return errutil.InvalidArgument(err.Error(), nil,
				errutil.WithDetails(detail("status", "unknown status")))
		}

		from = c.Status
		if err := ApplyTransition(c, Transition{
			To:      to,
			ActorID: tc.UserID,
			At:      s.now(),
			Reason:  req.Reason,
			Notes:   req.Notes,
		}); err != nil {
			return errutil.InvalidTransition(err.Error(), err)
		}

		if err := store.UpdateContract(ctx, tc.TenantID, id, c.Version, statusColumns(c)); err != nil {
			return err
		}
		changed = c
		return nil
	})
	if err != nil {
		return nil, storeError("change contract status", err)
	}

	s.afterStatusChange(ctx, changed, from)
	return s.Get(ctx, id)
}

func (s *Service) afterStatusChange(ctx context.Context, c *Contract, from Status) {
	statusTransitions.WithLabelValues(string(from), string(c.Status)).Inc()
	applog.FromContext(ctx).Info("contract status changed",
		zap.String("contract_id", c.ID),
		zap.String("from", string(from)),
		zap.String("to", string(c.Status)),
	)
	s.events.statusChanged(ctx, c, from)
}

// Delete physically removes a Draft contract without children. Any other
// contract that is neither finalized nor referenced by a child is cancelled.
func (s *Service) Delete(ctx context.Context, id string) error {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	var cancelled *Contract
	var from Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		c, err := store.GetContractForUpdate(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		hasChildren, err := store.HasChildren(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}

		switch {
		case c.Status == StatusDraft && !hasChildren:
			return store.DeleteContract(ctx, tc.TenantID, id)
		case c.Status.IsFinalized():
			return errutil.InvalidState("contract is finalized and cannot be deleted", nil)
		case hasChildren:
			return errutil.InvalidState("contract has dependents and cannot be deleted", nil)
		}

		from = c.Status
		applyStatus(c, Transition{
			To:      StatusCancelled,
			ActorID: tc.UserID,
			At:      s.now(),
			Reason:  deletedReason,
		})
		if err := store.UpdateContract(ctx, tc.TenantID, id, c.Version, statusColumns(c)); err != nil {
			return err
		}
		cancelled = c
		return nil
	})
	if err != nil {
		return storeError("delete contract", err)
	}

	if cancelled != nil {
		s.afterStatusChange(ctx, cancelled, from)
	} else {
		applog.FromContext(ctx).Info("draft contract removed", zap.String("contract_id", id))
	}
	return nil
}

// Renew creates the successor of an Active or Expired contract and marks the
// original Renewed, atomically.
func (s *Service) Renew(ctx context.Context, id string, req CreateContractRequest) (*Contract, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	original, err := s.store.GetContract(ctx, tc.TenantID, id)
	if err != nil {
		return nil, storeError("load contract", err)
	}
	if original.Status != StatusActive && original.Status != StatusExpired {
		return nil, errutil.InvalidState("only Active or Expired contracts can be renewed", nil)
	}

	parentID := original.ID
	req.ParentContractID = &parentID
	in, err := s.prepareCreate(ctx, tc.TenantID, req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var successor, renewed *Contract
	var from Status
	err = s.withNumberRetry(ctx, tc.TenantID, now, func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		locked, err := store.GetContractForUpdate(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		if locked.Status != StatusActive && locked.Status != StatusExpired {
			return errutil.InvalidState("only Active or Expired contracts can be renewed", nil)
		}

		next := s.buildContract(tc, in, req, now)
		if err := s.insertNumbered(ctx, tx, next); err != nil {
			return err
		}

		from = locked.Status
		if err := ApplyTransition(locked, Transition{
			To:      StatusRenewed,
			ActorID: tc.UserID,
			At:      now,
			Reason:  renewedReason,
		}); err != nil {
			return errutil.InvalidTransition(err.Error(), err)
		}
		if err := store.UpdateContract(ctx, tc.TenantID, id, locked.Version, statusColumns(locked)); err != nil {
			return err
		}

		successor, renewed = next, locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	contractsCreated.Inc()
	s.events.created(ctx, successor)
	s.afterStatusChange(ctx, renewed, from)

	return s.Get(ctx, successor.ID)
}

// SignParty records the signature of one party. Signatures are final.
func (s *Service) SignParty(ctx context.Context, contractID, partyID string, req SignPartyRequest) (*ContractParty, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.SignedByName)
	if name == "" {
		return nil, errutil.InvalidArgument("signer name is required", nil,
			errutil.WithDetails(detail("signed_by_name", "signer name is required")))
	}

	now := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		c, err := store.GetContractForUpdate(ctx, tc.TenantID, contractID)
		if err != nil {
			return err
		}
		if c.Status.IsFinalized() {
			return errutil.InvalidState("contract is finalized", nil)
		}
		party, err := store.GetParty(ctx, tc.TenantID, contractID, partyID)
		if err != nil {
			return err
		}
		if party.SignedDate != nil {
			return errutil.InvalidState("party already signed", ErrAlreadySigned)
		}
		err = store.SignParty(ctx, tc.TenantID, partyID, now, name, strings.TrimSpace(req.SignedByTitle), tc.UserID)
		if errors.Is(err, ErrAlreadySigned) {
			return errutil.InvalidState("party already signed", err)
		}
		return err
	})
	if err != nil {
		return nil, storeError("sign party", err)
	}

	party, err := s.store.GetParty(ctx, tc.TenantID, contractID, partyID)
	if err != nil {
		return nil, storeError("load party", err)
	}
	return party, nil
}
