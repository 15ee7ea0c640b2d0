package service

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"readquest/internal/repository"
	"readquest/internal/testutil"
)

func TestBackupRoundTrip(t *testing.T) {
	source := testutil.NewDB(t)
	newGamificationService(t, source)
	quizzes := newQuizService(source, &fakeGenerator{}, nil)
	ctx := context.Background()

	book := seedBook(t, source, "The Gruffalo", longDescription)
	if _, err := quizzes.GetQuiz(ctx, book.ID, 5, "hard"); err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := NewBackupService(source).Export(ctx, path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	target := testutil.NewDB(t)
	restore := NewBackupService(target)
	summary, err := restore.Import(ctx, path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if summary.Books != 1 || summary.Templates != 1 || summary.Achievements != len(DefaultAchievements) {
		t.Errorf("summary = %+v", summary)
	}

	tmpl, err := repository.NewQuizTemplateRepository(target).Get(ctx, book.ID, "9-10", 5)
	if err != nil || tmpl == nil {
		t.Fatalf("restored template = %v, %v", tmpl, err)
	}
	if len(tmpl.Questions) != 5 {
		t.Errorf("restored %d questions", len(tmpl.Questions))
	}

	// Importing again adds nothing
	again, err := restore.Import(ctx, path)
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if again.Books != 0 || again.Templates != 0 || again.Achievements != 0 || again.Skipped != 2 {
		t.Errorf("second summary = %+v", again)
	}
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	db := testutil.NewDB(t)
	payload, _ := json.Marshal(BackupData{Version: "0.1"})
	if _, err := NewBackupService(db).ImportFromReader(context.Background(), bytes.NewReader(payload)); err == nil {
		t.Fatal("expected error for unknown backup version")
	}
}
