package importing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FullNameSearchField is a virtual search field matching "first last" on contacts.
const FullNameSearchField = "fullName"

// Record is a validated import row converted to its target type.
type Record interface {
	Type() ImportType
	// Columns returns the storage columns provided by the row.
	Columns() map[string]any
}

type ContactRow struct {
	FirstName   string
	LastName    string
	Email       *string
	Phone       *string
	Title       *string
	BusinessID  *string
	Address     *string
	City        *string
	State       *string
	ZipCode     *string
	ContactType *string
	Notes       *string
}

func (ContactRow) Type() ImportType { return ImportTypeContacts }

func (r ContactRow) Columns() map[string]any {
	cols := map[string]any{}
	if r.FirstName != "" {
		cols["first_name"] = r.FirstName
	}
	if r.LastName != "" {
		cols["last_name"] = r.LastName
	}
	putOptional(cols, "email", r.Email)
	putOptional(cols, "phone", r.Phone)
	putOptional(cols, "title", r.Title)
	putOptional(cols, "business_id", r.BusinessID)
	putOptional(cols, "address", r.Address)
	putOptional(cols, "city", r.City)
	putOptional(cols, "state", r.State)
	putOptional(cols, "zip_code", r.ZipCode)
	putOptional(cols, "contact_type", r.ContactType)
	putOptional(cols, "notes", r.Notes)
	return cols
}

type BusinessRow struct {
	Name          string
	Email         *string
	Phone         *string
	Website       *string
	Industry      *string
	Address       *string
	City          *string
	State         *string
	ZipCode       *string
	EmployeeCount *int64
	Notes         *string
}

func (BusinessRow) Type() ImportType { return ImportTypeBusinesses }

func (r BusinessRow) Columns() map[string]any {
	cols := map[string]any{}
	if r.Name != "" {
		cols["name"] = r.Name
	}
	putOptional(cols, "email", r.Email)
	putOptional(cols, "phone", r.Phone)
	putOptional(cols, "website", r.Website)
	putOptional(cols, "industry", r.Industry)
	putOptional(cols, "address", r.Address)
	putOptional(cols, "city", r.City)
	putOptional(cols, "state", r.State)
	putOptional(cols, "zip_code", r.ZipCode)
	if r.EmployeeCount != nil {
		cols["employee_count"] = *r.EmployeeCount
	}
	putOptional(cols, "notes", r.Notes)
	return cols
}

type DonationRow struct {
	Amount        decimal.Decimal
	Date          time.Time
	ContactID     *string
	Method        *string
	Campaign      *string
	ReceiptNumber *string
	Notes         *string
}

func (DonationRow) Type() ImportType { return ImportTypeDonations }

func (r DonationRow) Columns() map[string]any {
	cols := map[string]any{
		"amount":     r.Amount,
		"donated_at": r.Date,
	}
	putOptional(cols, "contact_id", r.ContactID)
	putOptional(cols, "method", r.Method)
	putOptional(cols, "campaign", r.Campaign)
	putOptional(cols, "receipt_number", r.ReceiptNumber)
	putOptional(cols, "notes", r.Notes)
	return cols
}

// NewRecord converts mapped target-field values into a typed row. related holds
// ids already resolved for related entities, keyed by their type.
func NewRecord(t ImportType, values map[string]string, related map[ImportType]string) (Record, error) {
	switch t {
	case ImportTypeContacts:
		return ContactRow{
			FirstName:   values["firstName"],
			LastName:    values["lastName"],
			Email:       optional(values, "emails"),
			Phone:       optional(values, "phones"),
			Title:       optional(values, "title"),
			BusinessID:  relatedID(related, ImportTypeBusinesses),
			Address:     optional(values, "address"),
			City:        optional(values, "city"),
			State:       optional(values, "state"),
			ZipCode:     optional(values, "zipCode"),
			ContactType: lowerOptional(values, "contactType"),
			Notes:       optional(values, "notes"),
		}, nil
	case ImportTypeBusinesses:
		row := BusinessRow{
			Name:     values["name"],
			Email:    optional(values, "emails"),
			Phone:    optional(values, "phones"),
			Website:  optional(values, "website"),
			Industry: optional(values, "industry"),
			Address:  optional(values, "address"),
			City:     optional(values, "city"),
			State:    optional(values, "state"),
			ZipCode:  optional(values, "zipCode"),
			Notes:    optional(values, "notes"),
		}
		if raw := values["employeeCount"]; raw != "" {
			n, err := ParseNumber(raw)
			if err != nil {
				return nil, fmt.Errorf("employeeCount: %w", err)
			}
			count, err := WholeNumber(n)
			if err != nil {
				return nil, fmt.Errorf("employeeCount: %w", err)
			}
			row.EmployeeCount = &count
		}
		return row, nil
	case ImportTypeDonations:
		amount, err := ParseNumber(values["amount"])
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		date, err := ParseDate(values["date"])
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		return DonationRow{
			Amount:        amount,
			Date:          date,
			ContactID:     relatedID(related, ImportTypeContacts),
			Method:        lowerOptional(values, "method"),
			Campaign:      optional(values, "campaign"),
			ReceiptNumber: optional(values, "receiptNumber"),
			Notes:         optional(values, "notes"),
		}, nil
	}
	return nil, fmt.Errorf("unsupported import type %q", t)
}

func optional(values map[string]string, key string) *string {
	v, ok := values[key]
	if !ok || v == "" {
		return nil
	}
	return &v
}

func lowerOptional(values map[string]string, key string) *string {
	v := optional(values, key)
	if v == nil {
		return nil
	}
	lowered := strings.ToLower(*v)
	return &lowered
}

func relatedID(related map[ImportType]string, t ImportType) *string {
	id, ok := related[t]
	if !ok || id == "" {
		return nil
	}
	return &id
}

func putOptional(cols map[string]any, column string, v *string) {
	if v != nil {
		cols[column] = *v
	}
}
