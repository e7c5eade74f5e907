package importing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

// MappedRow is a source row resolved to target fields. RowNumber is 1-based
// against the whole source file.
type MappedRow struct {
	RowNumber int64
	Values    map[string]string
	Raw       RawRow
}

type FieldError struct {
	RowNumber    int64            `json:"rowNumber"`
	FieldName    string           `json:"fieldName,omitempty"`
	ErrorType    domain.ErrorKind `json:"errorType"`
	ErrorMessage string           `json:"errorMessage"`
}

type InvalidRow struct {
	Row    MappedRow
	Errors []FieldError
}

// InFileDuplicate reports a row repeating the duplicate field value of an
// earlier row in the same input.
type InFileDuplicate struct {
	RowNumber      int64  `json:"rowNumber"`
	FirstRowNumber int64  `json:"firstRowNumber"`
	Field          string `json:"field"`
	Value          string `json:"value"`
}

type ValidationResult struct {
	ValidRows   []MappedRow
	InvalidRows []InvalidRow
	Duplicates  []InFileDuplicate
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate maps and checks rows. startIndex is the 0-based offset of rows[0]
// among the data rows of the source, so row numbers survive batching.
func (v *Validator) Validate(rows []RawRow, startIndex int64, cfg domain.ImportConfig, mapping domain.FieldMapping, duplicateField string) ValidationResult {
	result := ValidationResult{}
	dupCandidate, checkDuplicates := cfg.DuplicateCandidate(duplicateField)
	firstSeen := map[string]int64{}

	for i, raw := range rows {
		row := MapRow(raw, startIndex+int64(i)+1, cfg, mapping)

		errs := v.validateRow(row, cfg)
		if len(errs) == 0 {
			result.ValidRows = append(result.ValidRows, row)
		} else {
			result.InvalidRows = append(result.InvalidRows, InvalidRow{Row: row, Errors: errs})
		}

		if checkDuplicates {
			value := row.Values[dupCandidate.Field]
			if value == "" {
				continue
			}
			key := normalizeDuplicateValue(value, dupCandidate.CaseInsensitive)
			if first, ok := firstSeen[key]; ok {
				result.Duplicates = append(result.Duplicates, InFileDuplicate{
					RowNumber:      row.RowNumber,
					FirstRowNumber: first,
					Field:          dupCandidate.Field,
					Value:          value,
				})
			} else {
				firstSeen[key] = row.RowNumber
			}
		}
	}

	return result
}

// MapRow resolves CSV columns to target fields. Fields absent from the mapping
// are not provided. When several columns target one field, the first non-empty
// value in column name order wins.
func MapRow(raw RawRow, rowNumber int64, cfg domain.ImportConfig, mapping domain.FieldMapping) MappedRow {
	columns := make([]string, 0, len(mapping))
	for column := range mapping {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	values := make(map[string]string, len(columns))
	for _, column := range columns {
		field := mapping[column]
		if _, known := cfg.Field(field); !known {
			continue
		}
		if values[field] != "" {
			continue
		}
		values[field] = strings.TrimSpace(raw[column])
	}

	return MappedRow{RowNumber: rowNumber, Values: values, Raw: raw}
}

func (v *Validator) validateRow(row MappedRow, cfg domain.ImportConfig) []FieldError {
	var errs []FieldError
	for _, field := range cfg.Fields {
		value := row.Values[field.Name]
		if field.Required && value == "" {
			errs = append(errs, FieldError{
				RowNumber:    row.RowNumber,
				FieldName:    field.Name,
				ErrorType:    domain.ErrorKindValidation,
				ErrorMessage: fmt.Sprintf("%s is required", field.Label),
			})
			continue
		}
		if value == "" {
			continue
		}
		for _, rule := range field.Rules {
			if msg := v.checkRule(field, rule, value); msg != "" {
				if rule.Message != "" {
					msg = rule.Message
				}
				errs = append(errs, FieldError{
					RowNumber:    row.RowNumber,
					FieldName:    field.Name,
					ErrorType:    domain.ErrorKindValidation,
					ErrorMessage: msg,
				})
			}
		}
	}
	return errs
}

func (v *Validator) checkRule(field domain.FieldDefinition, rule domain.FieldRule, value string) string {
	switch rule.Type {
	case domain.RuleRequired:
		// handled before rules run
		return ""
	case domain.RuleEmail:
		if v.validate.Var(value, "email") != nil {
			return fmt.Sprintf("Invalid email format for %s: %q", field.Label, value)
		}
	case domain.RulePhone:
		if !validPhone(value) {
			return fmt.Sprintf("Invalid phone number for %s: %q", field.Label, value)
		}
	case domain.RuleNumber:
		n, err := domain.ParseNumber(value)
		if err != nil {
			return fmt.Sprintf("%s must be a number", field.Label)
		}
		if rule.Min != nil && n.LessThan(decimal.NewFromFloat(*rule.Min)) {
			return fmt.Sprintf("%s must be at least %s", field.Label, decimal.NewFromFloat(*rule.Min).String())
		}
		if rule.Max != nil && n.GreaterThan(decimal.NewFromFloat(*rule.Max)) {
			return fmt.Sprintf("%s must be at most %s", field.Label, decimal.NewFromFloat(*rule.Max).String())
		}
		if rule.Integer {
			if _, err := domain.WholeNumber(n); err != nil {
				return fmt.Sprintf("%s must be a whole number", field.Label)
			}
		}
	case domain.RuleDate:
		if _, err := domain.ParseDate(value); err != nil {
			return fmt.Sprintf("%s must be a valid date", field.Label)
		}
	case domain.RuleEnum:
		for _, option := range rule.Options {
			if strings.EqualFold(option, value) {
				return ""
			}
		}
		return fmt.Sprintf("%s must be one of: %s", field.Label, strings.Join(rule.Options, ", "))
	}
	return ""
}

func validPhone(value string) bool {
	digits := 0
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.' || r == '+':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

func normalizeDuplicateValue(value string, caseInsensitive bool) string {
	value = strings.TrimSpace(value)
	if caseInsensitive {
		return strings.ToLower(value)
	}
	return value
}
