package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

func newTemplateCmd() *cobra.Command {
	var (
		format       string
		outDir       string
		instructions bool
	)

	cmd := &cobra.Command{
		Use:   "template <type>",
		Short: "Write the import template for a record type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := writeTemplate(app.NewTemplateService(), domain.ImportType(args[0]), format, outDir, instructions)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "Include field instructions")
	return cmd
}

func writeTemplate(templates *app.TemplateService, importType domain.ImportType, format, outDir string, instructions bool) (string, error) {
	generate := templates.GenerateCSVTemplate
	if instructions {
		generate = templates.GenerateCSVTemplateWithInstructions
	}
	tpl, err := generate(importType)
	if err != nil {
		return "", err
	}

	var (
		body     []byte
		filename string
	)
	switch format {
	case "csv":
		body, err = templates.RenderCSV(tpl)
		filename = tpl.Filename
	case "xlsx":
		body, err = templates.RenderXLSX(tpl)
		filename = app.XLSXFilename(tpl)
	default:
		return "", fmt.Errorf("unsupported template format %q", format)
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(outDir, filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write template: %w", err)
	}
	return path, nil
}
