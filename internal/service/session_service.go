package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/player"
	"readquest/internal/validation"
)

const finishTimeout = 15 * time.Second

// SessionView is what the quiz session endpoints return
type SessionView struct {
	ID         string                   `json:"id"`
	BookID     string                   `json:"book_id"`
	Difficulty models.Difficulty        `json:"difficulty"`
	Source     string                   `json:"source,omitempty"`
	Player     player.View              `json:"player"`
	Completion *models.CompletionResult `json:"completion,omitempty"`
}

// QuizSessionService runs quiz attempts on the server. Finishing an attempt
// records a completion event for everyone and updates stats for signed-in
// players only.
type QuizSessionService struct {
	quizzes      *QuizService
	events       *EventService
	gamification *GamificationService
	store        *player.Store
	delay        time.Duration
}

func NewQuizSessionService(quizzes *QuizService, events *EventService, gamification *GamificationService, store *player.Store, feedbackDelay time.Duration) *QuizSessionService {
	return &QuizSessionService{
		quizzes:      quizzes,
		events:       events,
		gamification: gamification,
		store:        store,
		delay:        feedbackDelay,
	}
}

// Start loads a quiz and opens a session. userID is empty for anonymous players.
func (s *QuizSessionService) Start(ctx context.Context, userID, bookID string, questionCount int, difficulty string) (*SessionView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, bookID, questionCount, difficulty)
	if err != nil {
		return nil, err
	}
	tier, err := models.ParseDifficulty(difficulty)
	if err != nil {
		return nil, invalid(err)
	}

	sess := &player.Session{
		UserID:     userID,
		BookID:     bookID,
		Difficulty: tier,
	}
	sess.Player = player.New(s.delay, func(summary player.Summary) {
		s.finish(sess, summary)
	})
	if err := sess.Player.Load(quiz.Questions); err != nil {
		return nil, fmt.Errorf("failed to start quiz: %w", err)
	}
	s.store.Add(sess)

	s.events.RecordBackground(ctx, s.eventFor(sess, models.EventQuizStarted, nil))
	logger.Debug("quiz session started", "session_id", sess.ID, "book_id", bookID, "anonymous", sess.Anonymous())

	view := s.view(sess)
	view.Source = quiz.Source
	return view, nil
}

func (s *QuizSessionService) eventFor(sess *player.Session, eventType string, score *int) validation.EventInput {
	band := string(sess.Difficulty)
	in := validation.EventInput{
		EventType: eventType,
		BookID:    sess.BookID,
		AgeBand:   &band,
		Score:     score,
	}
	if !sess.Anonymous() {
		userID := sess.UserID
		in.UserID = &userID
	}
	return in
}

// finish runs once per attempt, possibly on the feedback timer's goroutine
func (s *QuizSessionService) finish(sess *player.Session, summary player.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()

	percent := summary.Percent()
	s.events.RecordBackground(ctx, s.eventFor(sess, models.EventQuizCompleted, &percent))

	if sess.Anonymous() {
		return
	}

	result, err := s.gamification.RecordQuizCompletion(ctx, Completion{
		UserID:         sess.UserID,
		BookID:         sess.BookID,
		Score:          summary.Score,
		TotalQuestions: summary.Total,
		Difficulty:     string(sess.Difficulty),
		PointsEarned:   PointsForScore(summary.Score, summary.Total),
	})
	if err != nil {
		logger.Error("failed to record quiz completion", "session_id", sess.ID, "user_id", sess.UserID, "error", err)
		return
	}
	sess.SetCompletion(result)
}

func (s *QuizSessionService) lookup(id, userID string) (*player.Session, error) {
	sess, ok := s.store.Get(id)
	if !ok || sess.UserID != userID {
		return nil, ErrQuizSessionNotFound
	}
	return sess, nil
}

func (s *QuizSessionService) view(sess *player.Session) *SessionView {
	return &SessionView{
		ID:         sess.ID,
		BookID:     sess.BookID,
		Difficulty: sess.Difficulty,
		Player:     sess.Player.View(),
		Completion: sess.Completion(),
	}
}

// Get returns the current state of a session owned by userID
func (s *QuizSessionService) Get(id, userID string) (*SessionView, error) {
	sess, err := s.lookup(id, userID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Answer submits a choice for the current question
func (s *QuizSessionService) Answer(id, userID string, choice int) (*SessionView, error) {
	sess, err := s.lookup(id, userID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Player.Answer(choice); err != nil {
		return nil, playerError(err)
	}
	return s.view(sess), nil
}

// Advance moves past the feedback for the current question
func (s *QuizSessionService) Advance(id, userID string) (*SessionView, error) {
	sess, err := s.lookup(id, userID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Player.Advance(); err != nil {
		return nil, playerError(err)
	}
	return s.view(sess), nil
}

// Cancel abandons an attempt without recording anything
func (s *QuizSessionService) Cancel(id, userID string) error {
	sess, err := s.lookup(id, userID)
	if err != nil {
		return err
	}
	sess.Player.Cancel()
	s.store.Remove(id)
	return nil
}

func playerError(err error) error {
	switch {
	case errors.Is(err, player.ErrInvalidChoice):
		return invalid(err)
	case errors.Is(err, player.ErrWrongState):
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	return err
}
