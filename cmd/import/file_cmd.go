package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
	"github.com/mohammadpnp/crm-import/internal/bootstrap"
	infrafile "github.com/mohammadpnp/crm-import/internal/infrastructure/file"
	"github.com/mohammadpnp/crm-import/internal/logging"
)

type fileOutput struct {
	Command    string               `json:"command"`
	DurationMS int64                `json:"duration_ms"`
	Result     app.FileImportResult `json:"result"`
}

func newFileCmd() *cobra.Command {
	var (
		workspaceID    string
		importType     string
		importMode     string
		duplicateField string
		mapping        []string
		createdBy      string
	)

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Import a CSV file from IMPORT_BASE_DIR through an import session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fieldMapping, err := parseMapping(mapping)
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := logging.WithEntry(cmd.Context(), logger.WithField("command", "file"))

			a, err := bootstrap.NewApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			importer := app.NewFileImporter(a.Service, infrafile.NewLocalSource(cfg.Import.BaseDir), app.FileImportConfig{
				BatchSize:    cfg.Import.FileBatchSize,
				MaxAttempts:  cfg.Import.MaxAttempts,
				RetryBackoff: cfg.Import.RetryBackoff,
			})

			start := time.Now()
			res, err := importer.Import(ctx, app.FileImportInput{
				WorkspaceID:    workspaceID,
				ImportType:     importType,
				SourcePath:     args[0],
				ImportMode:     importMode,
				DuplicateField: duplicateField,
				FieldMapping:   fieldMapping,
				CreatedBy:      createdBy,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), fileOutput{
				Command:    "file",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "Workspace id (required)")
	cmd.Flags().StringVar(&importType, "type", "", "contacts, businesses or donations (required)")
	cmd.Flags().StringVar(&importMode, "mode", "create_only", "create_only or update_or_create")
	cmd.Flags().StringVar(&duplicateField, "duplicate-field", "", "Field used to find existing records")
	cmd.Flags().StringSliceVar(&mapping, "map", nil, "header=field pair, repeatable; defaults to matching header names")
	cmd.Flags().StringVar(&createdBy, "user", "cli", "Principal recorded as the session creator")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func parseMapping(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		header, field, ok := strings.Cut(pair, "=")
		header, field = strings.TrimSpace(header), strings.TrimSpace(field)
		if !ok || header == "" || field == "" {
			return nil, fmt.Errorf("invalid --map %q, want header=field", pair)
		}
		out[header] = field
	}
	return out, nil
}
