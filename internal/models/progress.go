package models

import "time"

// Achievement criteria types
const (
	CriteriaQuizzesCompleted = "quizzes_completed"
	CriteriaBooksRead        = "books_read"
	CriteriaTotalPoints      = "total_points"
	CriteriaCurrentStreak    = "current_streak"
	CriteriaPerfectScore     = "perfect_score"
)

// DateLayout is the calendar-day format used for last_quiz_date
const DateLayout = "2006-01-02"

type UserStats struct {
	UserID           string    `db:"user_id" json:"user_id"`
	TotalPoints      int       `db:"total_points" json:"total_points"`
	QuizzesCompleted int       `db:"quizzes_completed" json:"quizzes_completed"`
	BooksRead        int       `db:"books_read" json:"books_read"`
	CurrentStreak    int       `db:"current_streak" json:"current_streak"`
	LongestStreak    int       `db:"longest_streak" json:"longest_streak"`
	LastQuizDate     *string   `db:"last_quiz_date" json:"last_quiz_date"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

type QuizHistory struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	BookID         string    `db:"book_id" json:"book_id"`
	BookTitle      string    `db:"book_title" json:"book_title,omitempty"`
	Score          int       `db:"score" json:"score"`
	TotalQuestions int       `db:"total_questions" json:"total_questions"`
	Difficulty     string    `db:"difficulty" json:"difficulty"`
	PointsEarned   int       `db:"points_earned" json:"points_earned"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
}

type Achievement struct {
	ID            string `db:"id" json:"id"`
	Code          string `db:"code" json:"code"`
	Name          string `db:"name" json:"name"`
	Description   string `db:"description" json:"description"`
	CriteriaType  string `db:"criteria_type" json:"criteria_type"`
	CriteriaValue int    `db:"criteria_value" json:"criteria_value"`
	PointsReward  int    `db:"points_reward" json:"points_reward"`
	Icon          string `db:"icon" json:"icon"`
}

type UserAchievement struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	AchievementID string    `db:"achievement_id" json:"achievement_id"`
	EarnedAt      time.Time `db:"earned_at" json:"earned_at"`
}

// AchievementStatus is a catalog entry annotated for one user
type AchievementStatus struct {
	Achievement
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// CompletionResult is returned after recording a finished quiz
type CompletionResult struct {
	Stats           UserStats     `json:"stats"`
	NewAchievements []Achievement `json:"new_achievements"`
	IsNewBook       bool          `json:"is_new_book"`
}

// StudentProgress is the guardian-visible view of a student
type StudentProgress struct {
	StudentID     string              `json:"student_id"`
	Stats         UserStats           `json:"stats"`
	RecentHistory []QuizHistory       `json:"recent_history"`
	Achievements  []AchievementStatus `json:"achievements"`
}
