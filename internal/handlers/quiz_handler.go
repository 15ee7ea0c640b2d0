package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"readquest/internal/security"
	"readquest/internal/service"
)

// QuizHandler serves quiz generation and interactive quiz sessions
type QuizHandler struct {
	quizzes  *service.QuizService
	sessions *service.QuizSessionService
}

func NewQuizHandler(quizzes *service.QuizService, sessions *service.QuizSessionService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, sessions: sessions}
}

type generateQuizRequest struct {
	BookID       string `json:"bookId"`
	NumQuestions int    `json:"numQuestions"`
	Difficulty   string `json:"difficulty"`
}

// GenerateQuiz returns a cached quiz or generates one
func (h *QuizHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req generateQuizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	quiz, err := h.quizzes.GetQuiz(r.Context(), req.BookID, req.NumQuestions, req.Difficulty)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, quiz)
}

// StartSession loads a quiz into a new server-side player
func (h *QuizHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req generateQuizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	view, err := h.sessions.Start(r.Context(), security.UserIDFrom(r.Context()), req.BookID, req.NumQuestions, req.Difficulty)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (h *QuizHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(chi.URLParam(r, "sessionId"), security.UserIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

type answerRequest struct {
	Choice *int `json:"choice"`
}

func (h *QuizHandler) AnswerSession(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if req.Choice == nil {
		respondWithError(w, r, fmt.Errorf("%w: choice is required", service.ErrValidation))
		return
	}

	view, err := h.sessions.Answer(chi.URLParam(r, "sessionId"), security.UserIDFrom(r.Context()), *req.Choice)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *QuizHandler) AdvanceSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Advance(chi.URLParam(r, "sessionId"), security.UserIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *QuizHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Cancel(chi.URLParam(r, "sessionId"), security.UserIDFrom(r.Context())); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
