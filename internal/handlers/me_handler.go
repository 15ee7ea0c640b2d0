package handlers

import (
	"net/http"
	"strconv"

	"readquest/internal/security"
	"readquest/internal/service"
)

// MeHandler serves the signed-in user's progress
type MeHandler struct {
	gamification *service.GamificationService
}

func NewMeHandler(gamification *service.GamificationService) *MeHandler {
	return &MeHandler{gamification: gamification}
}

type completionRequest struct {
	BookID         string `json:"book_id"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	Difficulty     string `json:"difficulty"`
	PointsEarned   int    `json:"points_earned"`
}

func (h *MeHandler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := h.gamification.RecordQuizCompletion(r.Context(), service.Completion{
		UserID:         security.UserIDFrom(r.Context()),
		BookID:         req.BookID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		Difficulty:     req.Difficulty,
		PointsEarned:   req.PointsEarned,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (h *MeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.gamification.GetStats(r.Context(), security.UserIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (h *MeHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 0)
	history, err := h.gamification.GetHistory(r.Context(), security.UserIDFrom(r.Context()), limit)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *MeHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.gamification.GetAchievements(r.Context(), security.UserIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"achievements": achievements})
}

// parseInt returns fallback for empty or malformed values
func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
