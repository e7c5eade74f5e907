package importing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

const (
	templateSheet     = "Import"
	instructionsSheet = "Instructions"
)

type Template struct {
	ImportType   domain.ImportType `json:"importType"`
	Headers      []string          `json:"headers"`
	SampleData   [][]string        `json:"sampleData"`
	Filename     string            `json:"filename"`
	Description  string            `json:"description"`
	Instructions []string          `json:"instructions,omitempty"`
}

// TemplateService derives downloadable templates from the static import
// configuration. It performs no I/O.
type TemplateService struct{}

func NewTemplateService() *TemplateService {
	return &TemplateService{}
}

// GenerateCSVTemplate lists required fields first, then optional ones, each in
// declaration order.
func (s *TemplateService) GenerateCSVTemplate(importType domain.ImportType) (Template, error) {
	cfg, ok := domain.ConfigFor(importType)
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnsupportedImportType, importType)
	}

	headers := append(cfg.RequiredFields(), cfg.OptionalFields()...)
	sample := make([]string, 0, len(headers))
	for _, name := range headers {
		field, _ := cfg.Field(name)
		sample = append(sample, field.Example)
	}

	return Template{
		ImportType:  importType,
		Headers:     headers,
		SampleData:  [][]string{sample},
		Filename:    string(importType) + "_import_template.csv",
		Description: fmt.Sprintf("%s Required columns: %s.", cfg.Description, strings.Join(cfg.RequiredFields(), ", ")),
	}, nil
}

func (s *TemplateService) GenerateCSVTemplateWithInstructions(importType domain.ImportType) (Template, error) {
	tpl, err := s.GenerateCSVTemplate(importType)
	if err != nil {
		return Template{}, err
	}
	cfg, _ := domain.ConfigFor(importType)

	tpl.Instructions = append(tpl.Instructions,
		"Instructions: remove these lines before uploading or leave them; lines starting with # are ignored.",
	)
	for _, name := range tpl.Headers {
		field, _ := cfg.Field(name)
		tpl.Instructions = append(tpl.Instructions, fieldInstruction(field))
	}
	if len(cfg.DuplicateFields) > 0 {
		names := make([]string, 0, len(cfg.DuplicateFields))
		for _, d := range cfg.DuplicateFields {
			names = append(names, d.Field)
		}
		tpl.Instructions = append(tpl.Instructions, "Duplicates can be detected on: "+strings.Join(names, " or "))
	}
	return tpl, nil
}

func fieldInstruction(field domain.FieldDefinition) string {
	requirement := "optional"
	if field.Required {
		requirement = "required"
	}
	parts := []string{fmt.Sprintf("%s (%s): %s", field.Name, requirement, field.Description)}
	for _, rule := range field.Rules {
		switch rule.Type {
		case domain.RuleEmail:
			parts = append(parts, "must be a valid email address")
		case domain.RulePhone:
			parts = append(parts, "7 to 15 digits")
		case domain.RuleNumber:
			text := "numeric"
			if rule.Min != nil {
				text += fmt.Sprintf(" >= %v", *rule.Min)
			}
			if rule.Max != nil {
				text += fmt.Sprintf(" <= %v", *rule.Max)
			}
			parts = append(parts, text)
		case domain.RuleDate:
			parts = append(parts, "date such as 2024-03-15 or 03/15/2024")
		case domain.RuleEnum:
			parts = append(parts, "one of "+strings.Join(rule.Options, " | "))
		}
	}
	return strings.Join(parts, "; ")
}

// RenderCSV writes the header and sample rows, then instructions as '#'
// comment lines that ParseCSV skips.
func (s *TemplateService) RenderCSV(tpl Template) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tpl.Headers); err != nil {
		return nil, fmt.Errorf("write template header: %w", err)
	}
	for _, row := range tpl.SampleData {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write template sample: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush template: %w", err)
	}

	for _, line := range tpl.Instructions {
		buf.WriteString("# ")
		buf.WriteString(strings.ReplaceAll(line, "\n", " "))
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func (s *TemplateService) RenderXLSX(tpl Template) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := tpl.Headers
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(templateSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("style xlsx header: %w", err)
	}

	for i, row := range tpl.SampleData {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row
		if err := f.SetSheetRow(templateSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write xlsx sample: %w", err)
		}
	}

	if len(tpl.Instructions) > 0 {
		if _, err := f.NewSheet(instructionsSheet); err != nil {
			return nil, fmt.Errorf("create instructions sheet: %w", err)
		}
		for i, line := range tpl.Instructions {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(instructionsSheet, cell, line); err != nil {
				return nil, fmt.Errorf("write instruction: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSXFilename swaps the csv extension of a template filename.
func XLSXFilename(tpl Template) string {
	return strings.TrimSuffix(tpl.Filename, ".csv") + ".xlsx"
}
