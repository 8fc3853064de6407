package contract

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PartyType string

const (
	PartyInternal            PartyType = "Internal"
	PartyExternal            PartyType = "External"
	PartyWitness             PartyType = "Witness"
	PartyLegalRepresentative PartyType = "LegalRepresentative"
)

func (t PartyType) IsValid() bool {
	switch t {
	case PartyInternal, PartyExternal, PartyWitness, PartyLegalRepresentative:
		return true
	}
	return false
}

// ContractType is a tenant owned template whose defaults are copied onto
// new contracts. Types are deactivated, never removed.
type ContractType struct {
	ID                  string    `gorm:"column:id;primaryKey;size:32" json:"id"`
	TenantID            string    `gorm:"column:tenant_id;size:64;not null;uniqueIndex:ux_contract_types_tenant_slug,priority:1" json:"tenant_id"`
	Name                string    `gorm:"column:name;size:100;not null" json:"name"`
	Slug                string    `gorm:"column:slug;size:120;not null;uniqueIndex:ux_contract_types_tenant_slug,priority:2" json:"slug"`
	Description         string    `gorm:"column:description;size:500" json:"description,omitempty"`
	Color               string    `gorm:"column:color;size:7" json:"color"`
	Icon                string    `gorm:"column:icon;size:50" json:"icon,omitempty"`
	IsActive            bool      `gorm:"column:is_active;not null" json:"is_active"`
	DefaultDurationDays int       `gorm:"column:default_duration_days;not null" json:"default_duration_days"`
	DefaultReminderDays int       `gorm:"column:default_reminder_days;not null" json:"default_reminder_days"`
	RequiresApproval    bool      `gorm:"column:requires_approval;not null" json:"requires_approval"`
	SupportsRenewal     bool      `gorm:"column:supports_renewal;not null" json:"supports_renewal"`
	CreatedAt           time.Time `gorm:"column:created_at" json:"created_at"`
	CreatedBy           string    `gorm:"column:created_by;size:64" json:"created_by"`
	UpdatedAt           time.Time `gorm:"column:updated_at" json:"updated_at"`
	UpdatedBy           string    `gorm:"column:updated_by;size:64" json:"updated_by"`
}

func (ContractType) TableName() string { return "contract_types" }

type Contract struct {
	ID             string `gorm:"column:id;primaryKey;size:32" json:"id"`
	TenantID       string `gorm:"column:tenant_id;size:64;not null;index;uniqueIndex:ux_contracts_tenant_number,priority:1" json:"tenant_id"`
	ContractNumber string `gorm:"column:contract_number;size:50;not null;uniqueIndex:ux_contracts_tenant_number,priority:2" json:"contract_number"`
	Title          string `gorm:"column:title;size:200;not null" json:"title"`
	Description    string `gorm:"column:description;type:text" json:"description,omitempty"`
	ContractTypeID string `gorm:"column:contract_type_id;size:32;not null;index" json:"contract_type_id"`
	Status         Status `gorm:"column:status;size:32;not null;index" json:"status"`
	Priority       int    `gorm:"column:priority;not null" json:"priority"`

	StartDate  time.Time  `gorm:"column:start_date;not null" json:"start_date"`
	EndDate    *time.Time `gorm:"column:end_date;index" json:"end_date,omitempty"`
	SignedDate *time.Time `gorm:"column:signed_date" json:"signed_date,omitempty"`

	Value            *decimal.Decimal `gorm:"column:value;type:decimal(18,2)" json:"value,omitempty"`
	Currency         string           `gorm:"column:currency;size:3" json:"currency,omitempty"`
	BillingFrequency string           `gorm:"column:billing_frequency;size:50" json:"billing_frequency,omitempty"`

	AutoRenewal             bool `gorm:"column:auto_renewal;not null" json:"auto_renewal"`
	RenewalReminderDays     int  `gorm:"column:renewal_reminder_days;not null" json:"renewal_reminder_days"`
	AutoRenewalDurationDays *int `gorm:"column:auto_renewal_duration_days" json:"auto_renewal_duration_days,omitempty"`

	Terms         string         `gorm:"column:terms;type:text" json:"terms,omitempty"`
	InternalNotes string         `gorm:"column:internal_notes;type:text" json:"internal_notes,omitempty"`
	Tags          string         `gorm:"column:tags;size:500" json:"tags,omitempty"`
	CustomFields  datatypes.JSON `gorm:"column:custom_fields" json:"custom_fields,omitempty"`

	ParentContractID *string `gorm:"column:parent_contract_id;size:32;index" json:"parent_contract_id,omitempty"`
	Department       string  `gorm:"column:department;size:100" json:"department,omitempty"`
	ProjectCode      string  `gorm:"column:project_code;size:50" json:"project_code,omitempty"`
	OwnerID          *string `gorm:"column:owner_id;size:64" json:"owner_id,omitempty"`

	ApprovedByID  *string    `gorm:"column:approved_by_id;size:64" json:"approved_by_id,omitempty"`
	ApprovedDate  *time.Time `gorm:"column:approved_date" json:"approved_date,omitempty"`
	ApprovalNotes string     `gorm:"column:approval_notes;size:1000" json:"approval_notes,omitempty"`

	LastStatusChangeDate  time.Time `gorm:"column:last_status_change_date;not null" json:"last_status_change_date"`
	LastStatusChangedByID string    `gorm:"column:last_status_changed_by_id;size:64" json:"last_status_changed_by_id"`
	StatusChangeReason    string    `gorm:"column:status_change_reason;size:500" json:"status_change_reason,omitempty"`

	NotificationsEnabled bool `gorm:"column:notifications_enabled;not null" json:"notifications_enabled"`

	DocumentPath        string `gorm:"column:document_path;size:500" json:"document_path,omitempty"`
	DocumentFileName    string `gorm:"column:document_file_name;size:255" json:"document_file_name,omitempty"`
	DocumentContentType string `gorm:"column:document_content_type;size:100" json:"document_content_type,omitempty"`
	DocumentSize        *int64 `gorm:"column:document_size" json:"document_size,omitempty"`

	Version   int64      `gorm:"column:version;not null" json:"version"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	CreatedBy string     `gorm:"column:created_by;size:64" json:"created_by"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
	UpdatedBy string     `gorm:"column:updated_by;size:64" json:"updated_by"`
	IsDeleted bool       `gorm:"column:is_deleted;not null;index" json:"-"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"-"`
	DeletedBy *string    `gorm:"column:deleted_by;size:64" json:"-"`

	Parties      []ContractParty `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"parties"`
	ContractType *ContractType   `gorm:"foreignKey:ContractTypeID" json:"contract_type,omitempty"`
}

func (Contract) TableName() string { return "contracts" }

type ContractParty struct {
	ID                 string     `gorm:"column:id;primaryKey;size:32" json:"id"`
	TenantID           string     `gorm:"column:tenant_id;size:64;not null;index" json:"tenant_id"`
	ContractID         string     `gorm:"column:contract_id;size:32;not null;index" json:"contract_id"`
	Position           int        `gorm:"column:position;not null" json:"-"`
	PartyType          PartyType  `gorm:"column:party_type;size:32;not null" json:"party_type"`
	Name               string     `gorm:"column:name;size:200;not null" json:"name"`
	LegalName          string     `gorm:"column:legal_name;size:200" json:"legal_name,omitempty"`
	ContactPersonName  string     `gorm:"column:contact_person_name;size:100" json:"contact_person_name,omitempty"`
	ContactPersonTitle string     `gorm:"column:contact_person_title;size:100" json:"contact_person_title,omitempty"`
	Email              string     `gorm:"column:email;size:200" json:"email,omitempty"`
	Phone              string     `gorm:"column:phone;size:50" json:"phone,omitempty"`
	AddressLine1       string     `gorm:"column:address_line1;size:200" json:"address_line1,omitempty"`
	AddressLine2       string     `gorm:"column:address_line2;size:200" json:"address_line2,omitempty"`
	City               string     `gorm:"column:city;size:100" json:"city,omitempty"`
	State              string     `gorm:"column:state;size:100" json:"state,omitempty"`
	PostalCode         string     `gorm:"column:postal_code;size:20" json:"postal_code,omitempty"`
	Country            string     `gorm:"column:country;size:100" json:"country,omitempty"`
	TaxID              string     `gorm:"column:tax_id;size:50" json:"tax_id,omitempty"`
	RegistrationNumber string     `gorm:"column:registration_number;size:50" json:"registration_number,omitempty"`
	Website            string     `gorm:"column:website;size:200" json:"website,omitempty"`
	RequiresSignature  bool       `gorm:"column:requires_signature;not null" json:"requires_signature"`
	SignedDate         *time.Time `gorm:"column:signed_date" json:"signed_date,omitempty"`
	SignedByName       string     `gorm:"column:signed_by_name;size:100" json:"signed_by_name,omitempty"`
	SignedByTitle      string     `gorm:"column:signed_by_title;size:100" json:"signed_by_title,omitempty"`
	Notes              string     `gorm:"column:notes;size:1000" json:"notes,omitempty"`
	SortOrder          int        `gorm:"column:sort_order;not null" json:"sort_order"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	CreatedBy          string     `gorm:"column:created_by;size:64" json:"created_by"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
	UpdatedBy          string     `gorm:"column:updated_by;size:64" json:"updated_by"`
}

func (ContractParty) TableName() string { return "contract_parties" }

// Models lists every table owned by this package, in migration order.
func Models() []interface{} {
	return []interface{}{&ContractType{}, &Contract{}, &ContractParty{}}
}
