package contract

import (
	"encoding/json"
	"strings"
	"time"

	"contract-lifecycle/pkg/errutil"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	DefaultPriority      = 3
	DefaultReminderDays  = 30
	MaxTitleLength       = 200
	MaxReminderDays      = 365
	MaxAutoRenewalDays   = 3650
	deletedReason        = "Contract deleted"
	renewedReason        = "Contract renewed"
	expiredReason        = "Contract end date reached"
	defaultContractColor = "#007bff"
)

var currencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "CAD": {}, "AUD": {}, "JPY": {},
	"CHF": {}, "CNY": {}, "INR": {}, "SEK": {}, "NOK": {}, "DKK": {},
}

var billingFrequencies = []string{"Monthly", "Quarterly", "Semi-annually", "Annually", "One-time", "Custom"}

// ContractInput carries the editable terms of a contract.
type ContractInput struct {
	Title                   string           `json:"title"`
	Description             string           `json:"description"`
	ContractTypeID          string           `json:"contract_type_id"`
	Priority                int              `json:"priority"`
	StartDate               time.Time        `json:"start_date"`
	EndDate                 *time.Time       `json:"end_date"`
	Value                   *decimal.Decimal `json:"value"`
	Currency                string           `json:"currency"`
	BillingFrequency        string           `json:"billing_frequency"`
	AutoRenewal             bool             `json:"auto_renewal"`
	RenewalReminderDays     int              `json:"renewal_reminder_days"`
	AutoRenewalDurationDays *int             `json:"auto_renewal_duration_days"`
	Terms                   string           `json:"terms"`
	InternalNotes           string           `json:"internal_notes"`
	Tags                    string           `json:"tags"`
	CustomFields            datatypes.JSON   `json:"custom_fields"`
	Department              string           `json:"department"`
	ProjectCode             string           `json:"project_code"`
	OwnerID                 *string          `json:"owner_id"`
	NotificationsEnabled    *bool            `json:"notifications_enabled"`
}

type PartyInput struct {
	PartyType          PartyType `json:"party_type"`
	Name               string    `json:"name"`
	LegalName          string    `json:"legal_name"`
	ContactPersonName  string    `json:"contact_person_name"`
	ContactPersonTitle string    `json:"contact_person_title"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	AddressLine1       string    `json:"address_line1"`
	AddressLine2       string    `json:"address_line2"`
	City               string    `json:"city"`
	State              string    `json:"state"`
	PostalCode         string    `json:"postal_code"`
	Country            string    `json:"country"`
	TaxID              string    `json:"tax_id"`
	RegistrationNumber string    `json:"registration_number"`
	Website            string    `json:"website"`
	RequiresSignature  *bool     `json:"requires_signature"`
	Notes              string    `json:"notes"`
	SortOrder          int       `json:"sort_order"`
}

type CreateContractRequest struct {
	ContractInput
	ParentContractID *string      `json:"parent_contract_id"`
	Parties          []PartyInput `json:"parties"`
}

// UpdateContractRequest replaces every editable term of a contract.
type UpdateContractRequest struct {
	ContractInput
}

// normalize trims text, canonicalizes enumerations and moves dates to UTC.
func (in ContractInput) normalize(ct *ContractType) ContractInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.BillingFrequency = canonicalBillingFrequency(in.BillingFrequency)
	in.StartDate = in.StartDate.UTC()
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		in.EndDate = &end
	}
	if in.Priority == 0 {
		in.Priority = DefaultPriority
	}
	if in.RenewalReminderDays == 0 {
		in.RenewalReminderDays = DefaultReminderDays
		if ct != nil && ct.DefaultReminderDays > 0 {
			in.RenewalReminderDays = ct.DefaultReminderDays
		}
	}
	return in
}

func (in ContractInput) notificationsEnabled() bool {
	return in.NotificationsEnabled == nil || *in.NotificationsEnabled
}

func canonicalBillingFrequency(v string) string {
	v = strings.TrimSpace(v)
	for _, f := range billingFrequencies {
		if strings.EqualFold(f, v) {
			return f
		}
	}
	return v
}

func detail(field, message string) errutil.Detail {
	return errutil.Detail{Field: field, Message: message}
}

// validateTerms checks a normalized input.
func validateTerms(in ContractInput) []errutil.Detail {
	var details []errutil.Detail

	switch {
	case in.Title == "":
		details = append(details, detail("title", "title is required"))
	case len(in.Title) > MaxTitleLength:
		details = append(details, detail("title", "title must be at most 200 characters"))
	}
	if in.Priority < 1 || in.Priority > 4 {
		details = append(details, detail("priority", "priority must be between 1 and 4"))
	}
	if in.StartDate.IsZero() {
		details = append(details, detail("start_date", "start date is required"))
	}
	if in.EndDate != nil && !in.StartDate.IsZero() && !in.EndDate.After(in.StartDate) {
		details = append(details, detail("end_date", "end date must be after start date"))
	}
	if in.AutoRenewal && in.EndDate == nil {
		details = append(details, detail("end_date", "end date is required when auto renewal is enabled"))
	}
	if in.Value != nil && in.Value.IsNegative() {
		details = append(details, detail("value", "value must not be negative"))
	}
	if in.Currency != "" {
		if _, ok := currencies[in.Currency]; !ok {
			details = append(details, detail("currency", "unsupported currency"))
		}
	}
	if in.BillingFrequency != "" && !isBillingFrequency(in.BillingFrequency) {
		details = append(details, detail("billing_frequency", "unsupported billing frequency"))
	}
	if in.RenewalReminderDays < 1 || in.RenewalReminderDays > MaxReminderDays {
		details = append(details, detail("renewal_reminder_days", "reminder days must be between 1 and 365"))
	}
	if d := in.AutoRenewalDurationDays; d != nil && (*d < 1 || *d > MaxAutoRenewalDays) {
		details = append(details, detail("auto_renewal_duration_days", "auto renewal duration must be between 1 and 3650 days"))
	}
	if len(in.CustomFields) > 0 && !json.Valid(in.CustomFields) {
		details = append(details, detail("custom_fields", "custom fields must be valid JSON"))
	}
	return details
}

func isBillingFrequency(v string) bool {
	for _, f := range billingFrequencies {
		if f == v {
			return true
		}
	}
	return false
}

func validateParties(parties []PartyInput) []errutil.Detail {
	var details []errutil.Detail

	external := false
	for _, p := range parties {
		if strings.TrimSpace(p.Name) == "" {
			details = append(details, detail("parties.name", "party name is required"))
		}
		if !p.PartyType.IsValid() {
			details = append(details, detail("parties.party_type", "invalid party type"))
		}
		if p.PartyType == PartyExternal {
			external = true
		}
	}
	if !external {
		details = append(details, detail("parties", "at least one external party is required"))
	}
	return details
}

func invalidArgument(details []errutil.Detail) error {
	msg := "invalid contract"
	if len(details) > 0 {
		msg = details[0].Message
	}
	return errutil.InvalidArgument(msg, nil, errutil.WithDetails(details...))
}
