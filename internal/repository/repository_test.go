package repository

import (
	"context"
	"testing"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
	"readquest/internal/testutil"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func seedBook(t *testing.T, repo *BookRepository, title string) *models.Book {
	t.Helper()
	book := &models.Book{Title: title, Author: "A. Writer", Description: "A story."}
	if err := repo.Create(context.Background(), book); err != nil {
		t.Fatalf("create book: %v", err)
	}
	return book
}

func sampleQuestions(n int) models.QuestionList {
	qs := make(models.QuestionList, n)
	for i := range qs {
		qs[i] = models.Question{Question: "Q?", Options: []string{"a", "b", "c"}, CorrectIndex: i % 3}
	}
	return qs
}

func TestBookRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	book := seedBook(t, repo, "The Gruffalo")

	got, err := repo.GetByID(ctx, book.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if got.Title != "The Gruffalo" || got.Source != models.BookSourceManual {
		t.Errorf("unexpected book: %+v", got)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}

	results, err := repo.SearchLocal(ctx, "gruff", 10)
	if err != nil {
		t.Fatalf("SearchLocal() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("SearchLocal() returned %d books, want 1", len(results))
	}
}

func TestUpsertBySourceIDKeepsLongerDescription(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	first := &models.Book{Title: "Matilda", Author: "Roald Dahl", Description: "A long and detailed description of Matilda.", Source: models.BookSourceGoogleBooks, SourceID: strPtr("vol-1")}
	stored, err := repo.UpsertBySourceID(ctx, first)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &models.Book{Title: "Matilda (Reissue)", Description: "Short.", Source: models.BookSourceGoogleBooks, SourceID: strPtr("vol-1")}
	updated, err := repo.UpsertBySourceID(ctx, second)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if updated.ID != stored.ID {
		t.Errorf("upsert created a second row: %s vs %s", updated.ID, stored.ID)
	}
	if updated.Title != "Matilda (Reissue)" {
		t.Errorf("title not refreshed: %q", updated.Title)
	}
	if updated.Description != first.Description {
		t.Errorf("shorter description replaced longer one: %q", updated.Description)
	}
	if updated.Author != "Roald Dahl" {
		t.Errorf("empty author overwrote existing: %q", updated.Author)
	}

	if _, err := repo.UpsertBySourceID(ctx, &models.Book{Title: "No source"}); err == nil {
		t.Error("expected error for book without source id")
	}
}

func TestQuizTemplateRepository(t *testing.T) {
	db := testutil.NewDB(t)
	books := NewBookRepository(db)
	repo := NewQuizTemplateRepository(db)
	ctx := context.Background()

	book := seedBook(t, books, "Frog and Toad")

	tmpl := &models.QuizTemplate{BookID: book.ID, AgeBand: "7-8", QuestionCount: 5, Questions: sampleQuestions(5), Source: models.QuizSourceAIGenerated}
	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, book.ID, "7-8", 5)
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if len(got.Questions) != 5 || got.Questions[4].CorrectIndex != 1 {
		t.Errorf("questions did not round trip: %+v", got.Questions)
	}

	dup := &models.QuizTemplate{BookID: book.ID, AgeBand: "7-8", QuestionCount: 5, Questions: sampleQuestions(5), Source: models.QuizSourceAIGenerated}
	if err := repo.Create(ctx, dup); !database.IsUniqueViolation(err) {
		t.Fatalf("duplicate Create() error = %v, want unique violation", err)
	}

	other, err := repo.Get(ctx, book.ID, "7-8", 10)
	if err != nil || other != nil {
		t.Errorf("Get(other count) = %v, %v; want nil, nil", other, err)
	}

	bands, err := repo.ListAgeBands(ctx, book.ID, 5)
	if err != nil || len(bands) != 1 || bands[0] != "7-8" {
		t.Errorf("ListAgeBands() = %v, %v", bands, err)
	}

	missing, err := books.ListMissingTemplates(ctx, 5, 3, 10)
	if err != nil || len(missing) != 1 {
		t.Errorf("ListMissingTemplates() = %v, %v; want the book", missing, err)
	}

	deleted, err := repo.DeleteForBook(ctx, book.ID)
	if err != nil || deleted != 1 {
		t.Errorf("DeleteForBook() = %d, %v", deleted, err)
	}
}

func TestDeleteBookCascades(t *testing.T) {
	db := testutil.NewDB(t)
	books := NewBookRepository(db)
	templates := NewQuizTemplateRepository(db)
	history := NewHistoryRepository(db)
	ctx := context.Background()

	book := seedBook(t, books, "Charlotte's Web")
	if err := templates.Create(ctx, &models.QuizTemplate{BookID: book.ID, AgeBand: "9-10", QuestionCount: 3, Questions: sampleQuestions(3), Source: models.QuizSourceAIGenerated}); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if err := history.Create(ctx, &models.QuizHistory{UserID: "u1", BookID: book.ID, Score: 3, TotalQuestions: 3, Difficulty: "hard", PointsEarned: 30}); err != nil {
		t.Fatalf("create history: %v", err)
	}

	ok, err := books.Delete(ctx, book.ID)
	if err != nil || !ok {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}

	count, err := templates.Count(ctx)
	if err != nil || count != 0 {
		t.Errorf("templates after cascade = %d, %v", count, err)
	}
	n, err := history.CountByUser(ctx, "u1")
	if err != nil || n != 0 {
		t.Errorf("history after cascade = %d, %v", n, err)
	}

	ok, err = books.Delete(ctx, book.ID)
	if err != nil || ok {
		t.Errorf("second Delete() = %v, %v; want false", ok, err)
	}
}

func TestStatsRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewStatsRepository(db)
	ctx := context.Background()

	none, err := repo.Get(ctx, "u1")
	if err != nil || none != nil {
		t.Fatalf("Get(new user) = %v, %v", none, err)
	}

	// a second Ensure, as a concurrent first completion would issue, is a no-op
	for i := 0; i < 2; i++ {
		if err := repo.Ensure(ctx, "u1"); err != nil {
			t.Fatalf("Ensure() #%d error = %v", i+1, err)
		}
	}
	empty, err := repo.GetForUpdate(ctx, "u1")
	if err != nil || empty == nil {
		t.Fatalf("GetForUpdate() = %v, %v", empty, err)
	}
	if empty.TotalPoints != 0 || empty.QuizzesCompleted != 0 || empty.LastQuizDate != nil {
		t.Errorf("ensured row = %+v, want zero counters", empty)
	}

	stats := &models.UserStats{UserID: "u1", TotalPoints: 80, QuizzesCompleted: 1, BooksRead: 1, CurrentStreak: 1, LongestStreak: 1, LastQuizDate: strPtr("2024-03-01")}
	if err := repo.Update(ctx, stats); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := repo.Ensure(ctx, "u1"); err != nil {
		t.Fatalf("Ensure(existing) error = %v", err)
	}
	if err := repo.AddPoints(ctx, "u1", 25); err != nil {
		t.Fatalf("AddPoints() error = %v", err)
	}

	got, err := repo.Get(ctx, "u1")
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if got.TotalPoints != 105 {
		t.Errorf("TotalPoints = %d, want 105", got.TotalPoints)
	}
	if got.LastQuizDate == nil || *got.LastQuizDate != "2024-03-01" {
		t.Errorf("LastQuizDate = %v", got.LastQuizDate)
	}
}

func TestAchievementAwardIsUnique(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAchievementRepository(db)
	ctx := context.Background()

	catalog := []models.Achievement{
		{Code: "first_quiz", Name: "First Quiz", CriteriaType: models.CriteriaQuizzesCompleted, CriteriaValue: 1, PointsReward: 10},
	}
	added, err := repo.EnsureCatalog(ctx, catalog)
	if err != nil || added != 1 {
		t.Fatalf("EnsureCatalog() = %d, %v", added, err)
	}
	added, err = repo.EnsureCatalog(ctx, catalog)
	if err != nil || added != 0 {
		t.Fatalf("second EnsureCatalog() = %d, %v; want 0", added, err)
	}

	list, err := repo.ListCatalog(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListCatalog() = %v, %v", list, err)
	}

	inserted, err := repo.Award(ctx, "u1", list[0].ID, time.Now())
	if err != nil || !inserted {
		t.Fatalf("Award() = %v, %v", inserted, err)
	}
	inserted, err = repo.Award(ctx, "u1", list[0].ID, time.Now())
	if err != nil || inserted {
		t.Fatalf("duplicate Award() = %v, %v; want false, nil", inserted, err)
	}

	earned, err := repo.ListEarned(ctx, "u1")
	if err != nil || len(earned) != 1 {
		t.Errorf("ListEarned() = %v, %v", earned, err)
	}
}

func TestGuardianRepositoryTransitionsOnlyFromPending(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGuardianRepository(db)
	ctx := context.Background()

	rel := &models.GuardianRelationship{GuardianID: "g1", RelationshipType: models.RelationshipParent, Status: models.RelationshipPending, InvitationCode: "ABC-123"}
	if err := repo.Create(ctx, rel); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByCode(ctx, "ABC-123")
	if err != nil || got == nil {
		t.Fatalf("GetByCode() = %v, %v", got, err)
	}
	if got.StudentID != nil {
		t.Errorf("StudentID should be NULL until acceptance, got %v", *got.StudentID)
	}

	ok, err := repo.Approve(ctx, rel.ID, "s1", time.Now())
	if err != nil || !ok {
		t.Fatalf("Approve() = %v, %v", ok, err)
	}
	ok, err = repo.Reject(ctx, rel.ID, time.Now())
	if err != nil || ok {
		t.Fatalf("Reject() after approval = %v, %v; want false", ok, err)
	}

	approved, err := repo.HasApproved(ctx, "g1", "s1")
	if err != nil || !approved {
		t.Errorf("HasApproved() = %v, %v", approved, err)
	}

	forStudent, err := repo.ListForStudent(ctx, "s1")
	if err != nil || len(forStudent) != 1 || forStudent[0].ApprovedAt == nil {
		t.Errorf("ListForStudent() = %+v, %v", forStudent, err)
	}

	dup := &models.GuardianRelationship{GuardianID: "g2", RelationshipType: models.RelationshipTeacher, Status: models.RelationshipPending, InvitationCode: "ABC-123"}
	if err := repo.Create(ctx, dup); !database.IsUniqueViolation(err) {
		t.Errorf("duplicate code error = %v, want unique violation", err)
	}
}

func TestRateLimitRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRateLimitRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, offset := range []time.Duration{-2 * time.Hour, -30 * time.Second, -10 * time.Second} {
		if err := repo.Log(ctx, "1.2.3.4", "search-books", now.Add(offset)); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}
	if err := repo.Log(ctx, "5.6.7.8", "search-books", now); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	count, err := repo.CountSince(ctx, "1.2.3.4", "search-books", now.Add(-time.Minute))
	if err != nil || count != 2 {
		t.Errorf("CountSince() = %d, %v; want 2", count, err)
	}

	oldest, err := repo.NthSince(ctx, "1.2.3.4", "search-books", now.Add(-time.Minute), 0)
	if err != nil {
		t.Fatalf("NthSince() error = %v", err)
	}
	if diff := oldest.Sub(now.Add(-30 * time.Second)); diff < -time.Second || diff > time.Second {
		t.Errorf("NthSince(0) = %v, want about %v", oldest, now.Add(-30*time.Second))
	}
	second, err := repo.NthSince(ctx, "1.2.3.4", "search-books", now.Add(-time.Minute), 1)
	if err != nil {
		t.Fatalf("NthSince() error = %v", err)
	}
	if diff := second.Sub(now.Add(-10 * time.Second)); diff < -time.Second || diff > time.Second {
		t.Errorf("NthSince(1) = %v, want about %v", second, now.Add(-10*time.Second))
	}
	if none, err := repo.NthSince(ctx, "1.2.3.4", "search-books", now.Add(-time.Minute), 2); err != nil || !none.IsZero() {
		t.Errorf("NthSince(2) = %v, %v; want zero time", none, err)
	}

	pruned, err := repo.DeleteBefore(ctx, now.Add(-time.Hour))
	if err != nil || pruned != 1 {
		t.Errorf("DeleteBefore() = %d, %v; want 1", pruned, err)
	}
}

func TestEventsAndPopularity(t *testing.T) {
	db := testutil.NewDB(t)
	books := NewBookRepository(db)
	events := NewEventRepository(db)
	popularity := NewPopularityRepository(db)
	ctx := context.Background()

	book := seedBook(t, books, "Where the Wild Things Are")
	records := []models.Event{
		{EventType: models.EventQuizStarted, BookID: book.ID},
		{EventType: models.EventQuizStarted, BookID: book.ID},
		{EventType: models.EventQuizCompleted, BookID: book.ID, Score: intPtr(80), AgeBand: strPtr("medium")},
		{EventType: models.EventQuizCompleted, BookID: book.ID, Score: intPtr(100), UserID: strPtr("u1")},
		{EventType: models.EventQuizStarted, BookID: "11111111-1111-1111-1111-111111111111"},
	}
	for i := range records {
		if err := events.Create(ctx, &records[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if records[i].ID == 0 {
			t.Errorf("event %d has no id", i)
		}
	}

	since := time.Now().Add(-time.Hour)
	counts, err := events.CountByType(ctx, since)
	if err != nil {
		t.Fatalf("CountByType() error = %v", err)
	}
	if counts[models.EventQuizStarted] != 3 || counts[models.EventQuizCompleted] != 2 {
		t.Errorf("CountByType() = %v", counts)
	}

	daily, err := events.DailyCounts(ctx, since)
	if err != nil {
		t.Fatalf("DailyCounts() error = %v", err)
	}
	total := 0
	for _, d := range daily {
		if len(d.Day) != 10 {
			t.Errorf("day bucket %q is not YYYY-MM-DD", d.Day)
		}
		total += d.Count
	}
	if total != 5 {
		t.Errorf("DailyCounts() total = %d, want 5", total)
	}

	rows, err := popularity.Rebuild(ctx, time.Now())
	if err != nil || rows != 1 {
		t.Fatalf("Rebuild() = %d, %v; want 1 row (unknown book ignored)", rows, err)
	}
	top, err := popularity.Top(ctx, 5)
	if err != nil || len(top) != 1 {
		t.Fatalf("Top() = %v, %v", top, err)
	}
	if top[0].Completions != 2 || top[0].Starts != 2 || top[0].AvgScore != 90 {
		t.Errorf("popularity = %+v", top[0])
	}
}

func TestRoleAndVideoRepositories(t *testing.T) {
	db := testutil.NewDB(t)
	roles := NewRoleRepository(db)
	videos := NewBookVideoRepository(db)
	books := NewBookRepository(db)
	ctx := context.Background()

	granted, err := roles.Grant(ctx, "u1", models.RoleAdmin)
	if err != nil || !granted {
		t.Fatalf("Grant() = %v, %v", granted, err)
	}
	granted, err = roles.Grant(ctx, "u1", models.RoleAdmin)
	if err != nil || granted {
		t.Fatalf("duplicate Grant() = %v, %v; want false, nil", granted, err)
	}
	has, err := roles.HasRole(ctx, "u1", models.RoleAdmin)
	if err != nil || !has {
		t.Errorf("HasRole() = %v, %v", has, err)
	}
	revoked, err := roles.Revoke(ctx, "u1", models.RoleAdmin)
	if err != nil || !revoked {
		t.Errorf("Revoke() = %v, %v", revoked, err)
	}

	book := seedBook(t, books, "Corduroy")
	if err := videos.Save(ctx, &models.BookVideo{BookID: book.ID}); err != nil {
		t.Fatalf("Save(miss) error = %v", err)
	}
	if err := videos.Save(ctx, &models.BookVideo{BookID: book.ID, HasVideo: true, VideoID: "yt1", Title: "Corduroy read aloud"}); err != nil {
		t.Fatalf("Save(hit) error = %v", err)
	}
	got, err := videos.Get(ctx, book.ID)
	if err != nil || got == nil || !got.HasVideo || got.VideoID != "yt1" {
		t.Errorf("Get() = %+v, %v", got, err)
	}
}
