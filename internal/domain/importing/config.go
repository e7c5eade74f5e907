package importing

type RuleType string

const (
	RuleRequired RuleType = "required"
	RuleEmail    RuleType = "email"
	RulePhone    RuleType = "phone"
	RuleNumber   RuleType = "number"
	RuleDate     RuleType = "date"
	RuleEnum     RuleType = "enum"
)

type FieldRule struct {
	Type    RuleType `json:"type"`
	Options []string `json:"options,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	// Integer restricts a number rule to whole values that fit in int64.
	Integer bool   `json:"integer,omitempty"`
	Message string `json:"message,omitempty"`
}

type FieldDefinition struct {
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	Example     string      `json:"example"`
	Column      string      `json:"-"`
	Required    bool        `json:"required"`
	Rules       []FieldRule `json:"rules,omitempty"`
}

type DuplicateField struct {
	Field           string `json:"field"`
	CaseInsensitive bool   `json:"caseInsensitive"`
}

// RelatedEntityConfig describes how a row references another record, such as
// a donation naming its donor.
type RelatedEntityConfig struct {
	SourceFields     []string   `json:"sourceFields"`
	TargetType       ImportType `json:"targetType"`
	SearchFields     []string   `json:"searchFields"`
	CreateIfNotFound bool       `json:"createIfNotFound"`
}

type ImportConfig struct {
	Type            ImportType            `json:"type"`
	Label           string                `json:"label"`
	Description     string                `json:"description"`
	Fields          []FieldDefinition     `json:"fields"`
	DuplicateFields []DuplicateField      `json:"duplicateFields"`
	RelatedEntities []RelatedEntityConfig `json:"relatedEntities,omitempty"`
}

func (c ImportConfig) RequiredFields() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

func (c ImportConfig) OptionalFields() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if !f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

func (c ImportConfig) Field(name string) (FieldDefinition, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

func (c ImportConfig) DuplicateCandidate(name string) (DuplicateField, bool) {
	for _, d := range c.DuplicateFields {
		if d.Field == name {
			return d, true
		}
	}
	return DuplicateField{}, false
}

func floatPtr(v float64) *float64 { return &v }

var configs = map[ImportType]ImportConfig{
	ImportTypeContacts: {
		Type:        ImportTypeContacts,
		Label:       "Contacts",
		Description: "Import people into the workspace address book.",
		Fields: []FieldDefinition{
			{Name: "firstName", Label: "First Name", Description: "Given name of the contact", Example: "John", Column: "first_name", Required: true},
			{Name: "lastName", Label: "Last Name", Description: "Family name of the contact", Example: "Doe", Column: "last_name", Required: true},
			{Name: "emails", Label: "Email", Description: "Primary email address", Example: "john.doe@example.com", Column: "email", Rules: []FieldRule{{Type: RuleEmail}}},
			{Name: "phones", Label: "Phone", Description: "Primary phone number", Example: "+1 555 123 4567", Column: "phone", Rules: []FieldRule{{Type: RulePhone}}},
			{Name: "title", Label: "Title", Description: "Job title", Example: "Director", Column: "title"},
			{Name: "businessName", Label: "Business", Description: "Organization the contact belongs to, created when missing", Example: "Acme Corp", Column: "business_id"},
			{Name: "address", Label: "Address", Description: "Street address", Example: "1 Main St", Column: "address"},
			{Name: "city", Label: "City", Description: "City", Example: "Austin", Column: "city"},
			{Name: "state", Label: "State", Description: "State or region", Example: "TX", Column: "state"},
			{Name: "zipCode", Label: "Zip Code", Description: "Postal code", Example: "78701", Column: "zip_code"},
			{Name: "contactType", Label: "Contact Type", Description: "One of individual, volunteer, donor, member, other", Example: "donor", Column: "contact_type", Rules: []FieldRule{{Type: RuleEnum, Options: []string{"individual", "volunteer", "donor", "member", "other"}}}},
			{Name: "notes", Label: "Notes", Description: "Free text notes", Example: "Met at gala", Column: "notes"},
		},
		DuplicateFields: []DuplicateField{
			{Field: "emails", CaseInsensitive: true},
			{Field: "phones"},
		},
		RelatedEntities: []RelatedEntityConfig{
			{SourceFields: []string{"businessName"}, TargetType: ImportTypeBusinesses, SearchFields: []string{"name"}, CreateIfNotFound: true},
		},
	},
	ImportTypeBusinesses: {
		Type:        ImportTypeBusinesses,
		Label:       "Businesses",
		Description: "Import organizations, companies and foundations.",
		Fields: []FieldDefinition{
			{Name: "name", Label: "Name", Description: "Business name", Example: "Acme Corp", Column: "name", Required: true},
			{Name: "emails", Label: "Email", Description: "Main email address", Example: "info@acme.example", Column: "email", Rules: []FieldRule{{Type: RuleEmail}}},
			{Name: "phones", Label: "Phone", Description: "Main phone number", Example: "+1 555 987 6543", Column: "phone", Rules: []FieldRule{{Type: RulePhone}}},
			{Name: "website", Label: "Website", Description: "Website URL", Example: "https://acme.example", Column: "website"},
			{Name: "industry", Label: "Industry", Description: "Industry or sector", Example: "Manufacturing", Column: "industry"},
			{Name: "address", Label: "Address", Description: "Street address", Example: "500 Market St", Column: "address"},
			{Name: "city", Label: "City", Description: "City", Example: "Austin", Column: "city"},
			{Name: "state", Label: "State", Description: "State or region", Example: "TX", Column: "state"},
			{Name: "zipCode", Label: "Zip Code", Description: "Postal code", Example: "78702", Column: "zip_code"},
			{Name: "employeeCount", Label: "Employees", Description: "Number of employees", Example: "120", Column: "employee_count", Rules: []FieldRule{{Type: RuleNumber, Min: floatPtr(0), Integer: true}}},
			{Name: "notes", Label: "Notes", Description: "Free text notes", Example: "Sponsor since 2019", Column: "notes"},
		},
		DuplicateFields: []DuplicateField{
			{Field: "name", CaseInsensitive: true},
			{Field: "emails", CaseInsensitive: true},
			{Field: "website", CaseInsensitive: true},
		},
	},
	ImportTypeDonations: {
		Type:        ImportTypeDonations,
		Label:       "Donations",
		Description: "Import gifts and link them to donor contacts.",
		Fields: []FieldDefinition{
			{Name: "amount", Label: "Amount", Description: "Donation amount, greater than zero", Example: "250.00", Column: "amount", Required: true, Rules: []FieldRule{{Type: RuleNumber, Min: floatPtr(0.01)}}},
			{Name: "date", Label: "Date", Description: "Date received (YYYY-MM-DD or MM/DD/YYYY)", Example: "2024-03-15", Column: "donated_at", Required: true, Rules: []FieldRule{{Type: RuleDate}}},
			{Name: "donorName", Label: "Donor Name", Description: "Full name of the donor, created as a contact when missing", Example: "Jane Smith", Column: "contact_id"},
			{Name: "donorEmail", Label: "Donor Email", Description: "Email of the donor, used to find the contact", Example: "jane.smith@example.com", Column: "contact_id", Rules: []FieldRule{{Type: RuleEmail}}},
			{Name: "method", Label: "Payment Method", Description: "One of cash, check, credit_card, bank_transfer, online, other", Example: "check", Column: "method", Rules: []FieldRule{{Type: RuleEnum, Options: []string{"cash", "check", "credit_card", "bank_transfer", "online", "other"}}}},
			{Name: "campaign", Label: "Campaign", Description: "Campaign or fund", Example: "Spring Appeal", Column: "campaign"},
			{Name: "receiptNumber", Label: "Receipt Number", Description: "Receipt or transaction reference", Example: "R-1001", Column: "receipt_number"},
			{Name: "notes", Label: "Notes", Description: "Free text notes", Example: "In memory of Sam", Column: "notes"},
		},
		DuplicateFields: []DuplicateField{
			{Field: "receiptNumber"},
		},
		RelatedEntities: []RelatedEntityConfig{
			{SourceFields: []string{"donorEmail", "donorName"}, TargetType: ImportTypeContacts, SearchFields: []string{"emails", "fullName"}, CreateIfNotFound: true},
		},
	},
}

var configOrder = []ImportType{ImportTypeContacts, ImportTypeBusinesses, ImportTypeDonations}

// ConfigFor returns the static import configuration for t.
func ConfigFor(t ImportType) (ImportConfig, bool) {
	cfg, ok := configs[t]
	return cfg, ok
}

func AllConfigs() []ImportConfig {
	out := make([]ImportConfig, 0, len(configOrder))
	for _, t := range configOrder {
		out = append(out, configs[t])
	}
	return out
}
