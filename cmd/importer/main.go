package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/opsboard/import-engine/internal/config"
	"github.com/opsboard/import-engine/internal/database"
	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/logger"
	"github.com/opsboard/import-engine/internal/repository"
	"github.com/opsboard/import-engine/internal/schema"
	"github.com/opsboard/import-engine/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() error {
	return fmt.Errorf("usage: importer [import|fields|datasets|export|delete] ...")
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Wire repositories and services
	customFieldRepo := repository.NewCustomFieldRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	datasetRepo := repository.NewDatasetRepository(db)
	configRepo := repository.NewImportConfigRepository(db)

	registry := schema.NewRegistry(customFieldRepo, log)
	mappingService := service.NewMappingService(mappingRepo, log)
	datasetService := service.NewDatasetService(datasetRepo, registry, log)
	importService := service.NewImportService(registry, mappingService, datasetService, configRepo, cfg.Import.Rules, log)

	args := os.Args[1:]
	if len(args) == 0 {
		return usage()
	}

	switch args[0] {
	case "import":
		return runImport(ctx, importService, log, args[1:])
	case "fields":
		return runFields(ctx, registry, args[1:])
	case "datasets":
		return runDatasets(ctx, datasetService)
	case "export":
		return runExport(ctx, datasetService, args[1:])
	case "delete":
		return runDelete(ctx, datasetService, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// decodeCSV is the external decode boundary: file → headers + rows. The
// engine itself never touches files.
func decodeCSV(path string) ([]string, [][]string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, nil, fmt.Errorf("%w: %s (expected .csv)", domain.ErrUnsupportedFileType, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrFileReadFailure, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrFileReadFailure, err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrFileReadFailure, err)
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func runImport(ctx context.Context, svc *service.ImportService, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	datasetType := fs.String("type", string(domain.DatasetCombined), "dataset type: budget, actual or combined")
	name := fs.String("name", "", "dataset name (defaults to the file name)")
	overrideFlag := fs.String("map", "", "mapping overrides, e.g. 'My Col=budgetedVolume;Other Col='")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: importer import [flags] <file.csv>")
	}
	path := fs.Arg(0)

	headers, rows, err := decodeCSV(path)
	if err != nil {
		return err
	}

	sess := svc.NewSession()
	if err := sess.SetSource(filepath.Base(path), headers, rows); err != nil {
		return err
	}

	proposed, err := sess.ProposeMapping(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Column mapping:")
	for _, m := range proposed {
		target := "(unmapped)"
		if m.SystemField != "" {
			target = m.SystemField
		}
		required := ""
		if m.IsRequired {
			required = " [required]"
		}
		fmt.Printf("  %-30s -> %-20s %s%s\n", m.UserColumn, target, m.Confidence, required)
	}

	overrides, err := parseOverrides(*overrideFlag)
	if err != nil {
		return err
	}
	if _, err := sess.ConfirmMapping(ctx, overrides); err != nil {
		return err
	}

	datasetName := *name
	if datasetName == "" {
		datasetName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	result, dataset, err := sess.ValidateAndPersist(ctx, datasetName, domain.DatasetType(*datasetType))
	if err != nil {
		return err
	}

	printReport(result)
	if dataset == nil {
		return fmt.Errorf("import failed validation, nothing was saved")
	}

	log.Info("Import complete", zap.String("dataset_id", dataset.ID))
	fmt.Printf("Saved dataset %s (%d rows)\n", dataset.ID, dataset.RowCount)
	return nil
}

// parseOverrides parses "Header=field;Other Header=" pairs. An empty
// field unmaps the column.
func parseOverrides(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	overrides := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		column, field, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(column) == "" {
			return nil, fmt.Errorf("invalid mapping override %q", pair)
		}
		overrides[strings.TrimSpace(column)] = strings.TrimSpace(field)
	}
	return overrides, nil
}

func printReport(result *domain.ValidationResult) {
	fmt.Printf("Validation: %d rows, %d valid, %d invalid\n",
		result.Summary.TotalRows, result.Summary.ValidRows, result.Summary.InvalidRows)
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func runFields(ctx context.Context, registry *schema.Registry, args []string) error {
	filter := domain.FieldFilter{}
	if len(args) > 0 {
		filter.Category = domain.FieldCategory(args[0])
	}

	fields, err := registry.ListFields(ctx, filter)
	if err != nil {
		return err
	}
	for _, f := range fields {
		kind := "core"
		if !f.IsCore {
			kind = "custom"
		}
		fmt.Printf("  %-20s %-25s %-12s %-10s %s\n", f.Field, f.DisplayName, f.Category, f.SourceType, kind)
		if f.FormulaString != "" {
			fmt.Printf("  %-20s formula: %s\n", "", f.FormulaString)
		}
	}
	return nil
}

func runDatasets(ctx context.Context, datasets *service.DatasetService) error {
	all, err := datasets.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No datasets imported yet.")
		return nil
	}
	for _, d := range all {
		fmt.Printf("  %-40s %-20s %-10s %5d rows  %s\n",
			d.ID, d.Name, d.DatasetType, d.RowCount, d.UploadedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runExport(ctx context.Context, datasets *service.DatasetService, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: importer export <dataset-id> [output.csv]")
	}

	var out io.Writer = os.Stdout
	if len(args) > 1 {
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return datasets.ExportCSV(ctx, args[0], out)
}

func runDelete(ctx context.Context, datasets *service.DatasetService, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: importer delete <dataset-id>")
	}
	if err := datasets.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted dataset %s\n", args[0])
	return nil
}
