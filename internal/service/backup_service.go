package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"readquest/internal/database"
	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData is the catalog snapshot: books, cached quizzes and the
// achievement catalog. User progress is not included.
type BackupData struct {
	Version      string                `json:"version"`
	ExportedAt   time.Time             `json:"exported_at"`
	DatabaseType string                `json:"database_type"`
	Books        []models.Book         `json:"books"`
	Templates    []models.QuizTemplate `json:"quiz_templates"`
	Achievements []models.Achievement  `json:"achievements"`
}

// ImportSummary counts what an import added
type ImportSummary struct {
	Books        int `json:"books"`
	Templates    int `json:"quiz_templates"`
	Achievements int `json:"achievements"`
	Skipped      int `json:"skipped"`
}

// BackupService handles catalog export and restore
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a backup of the catalog to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	logger.Info("catalog exported", "path", outputPath)
	return nil
}

// ExportToWriter encodes the catalog as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	var err error
	if backup.Books, err = repository.NewBookRepository(s.db).ListAll(ctx); err != nil {
		return fmt.Errorf("failed to export books: %w", err)
	}
	if backup.Templates, err = repository.NewQuizTemplateRepository(s.db).ListAll(ctx); err != nil {
		return fmt.Errorf("failed to export quiz templates: %w", err)
	}
	if backup.Achievements, err = repository.NewAchievementRepository(s.db).ListCatalog(ctx); err != nil {
		return fmt.Errorf("failed to export achievements: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	logger.Info("exported catalog",
		"books", len(backup.Books), "quiz_templates", len(backup.Templates), "achievements", len(backup.Achievements))
	return nil
}

// Import restores a catalog backup from a file
func (s *BackupService) Import(ctx context.Context, inputPath string) (*ImportSummary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores a catalog backup. Rows already present are
// skipped, so importing the same file twice is harmless. Everything is
// applied in one transaction.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) (*ImportSummary, error) {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	logger.Info("importing catalog", "version", backup.Version, "exported_at", backup.ExportedAt, "from", backup.DatabaseType)

	summary := &ImportSummary{}
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		books := repository.NewBookRepository(tx)
		templates := repository.NewQuizTemplateRepository(tx)
		achievements := repository.NewAchievementRepository(tx)

		for i := range backup.Books {
			book := backup.Books[i]
			exists, err := books.Exists(ctx, book.ID)
			if err != nil {
				return fmt.Errorf("failed to check book %s: %w", book.ID, err)
			}
			if !exists && book.SourceID != nil {
				existing, err := books.GetBySourceID(ctx, *book.SourceID)
				if err != nil {
					return fmt.Errorf("failed to check book %s: %w", book.ID, err)
				}
				exists = existing != nil
			}
			if exists {
				summary.Skipped++
				continue
			}
			if err := books.Create(ctx, &book); err != nil {
				return fmt.Errorf("failed to import book %s: %w", book.ID, err)
			}
			summary.Books++
		}

		for i := range backup.Templates {
			tmpl := backup.Templates[i]
			exists, err := books.Exists(ctx, tmpl.BookID)
			if err != nil {
				return fmt.Errorf("failed to check book %s: %w", tmpl.BookID, err)
			}
			current, err := templates.Get(ctx, tmpl.BookID, tmpl.AgeBand, tmpl.QuestionCount)
			if err != nil {
				return fmt.Errorf("failed to check template %s: %w", tmpl.ID, err)
			}
			if !exists || current != nil {
				summary.Skipped++
				continue
			}
			if err := ValidateQuestions(tmpl.Questions, tmpl.QuestionCount); err != nil {
				logger.Warn("skipping invalid quiz template", "template_id", tmpl.ID, "error", err)
				summary.Skipped++
				continue
			}
			if err := templates.Create(ctx, &tmpl); err != nil {
				return fmt.Errorf("failed to import template %s: %w", tmpl.ID, err)
			}
			summary.Templates++
		}

		added, err := achievements.EnsureCatalog(ctx, backup.Achievements)
		if err != nil {
			return fmt.Errorf("failed to import achievements: %w", err)
		}
		summary.Achievements = added
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("catalog import completed",
		"books", summary.Books, "quiz_templates", summary.Templates,
		"achievements", summary.Achievements, "skipped", summary.Skipped)
	return summary, nil
}
