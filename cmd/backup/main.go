package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"readquest/internal/config"
	"readquest/internal/database"
	"readquest/internal/logger"
	"readquest/internal/service"
	"readquest/migrations"
)

// cacheTables hold derived content that is safe to wipe before an import
var cacheTables = []string{
	"quiz_templates",
	"book_videos",
	"book_popularity",
}

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear cached quizzes and media before import")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	if err := logger.Configure(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		logger.Warn("Logger configured with fallbacks", "error", err)
	}

	ctx := context.Background()
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		fatal("Failed to initialize database", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		fatal("Failed to run migrations", err)
	}

	backupService := service.NewBackupService(db)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, backupService, db, *importInput, *importClear)

	default:
		printUsage()
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatal("Failed to create output directory", err)
		}
	}

	logger.Info("Exporting catalog", "path", outputPath)
	if err := backupService.Export(ctx, outputPath); err != nil {
		fatal("Export failed", err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		logger.Info("Export complete", "size_mb", fmt.Sprintf("%.2f", float64(info.Size())/1024/1024))
	}
}

func handleImport(ctx context.Context, backupService *service.BackupService, db *database.DB, inputPath string, clearCaches bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		fatal("Input file does not exist", err)
	}

	if clearCaches {
		fmt.Print("WARNING: This deletes every cached quiz and media lookup. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			logger.Info("Import cancelled")
			return
		}
		if err := clearTables(ctx, db); err != nil {
			fatal("Failed to clear caches", err)
		}
	}

	logger.Info("Importing catalog", "path", inputPath)
	summary, err := backupService.Import(ctx, inputPath)
	if err != nil {
		fatal("Import failed", err)
	}
	logger.Info("Import complete",
		"books", summary.Books,
		"quiz_templates", summary.Templates,
		"achievements", summary.Achievements,
		"skipped", summary.Skipped,
	)
}

func clearTables(ctx context.Context, db *database.DB) error {
	return db.InTx(ctx, func(tx *database.Tx) error {
		for _, table := range cacheTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			logger.Info("Cleared table", "table", table)
		}
		return nil
	})
}

func printUsage() {
	fmt.Println("ReadQuest Catalog Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export books, quiz templates and achievements to JSON")
	fmt.Println("  backup import [options]    Import a catalog export")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear cached quizzes and media first")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, pgx or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./readquest.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
