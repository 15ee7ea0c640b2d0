package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"readquest/internal/service"
)

// BookHandler serves catalog search, enrichment, media and pre-generation
type BookHandler struct {
	books  *service.BookService
	pregen *service.PregenService
}

func NewBookHandler(books *service.BookService, pregen *service.PregenService) *BookHandler {
	return &BookHandler{books: books, pregen: pregen}
}

type searchBooksRequest struct {
	Query string `json:"query"`
}

func (h *BookHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	var req searchBooksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	books, err := h.books.Search(r.Context(), req.Query)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.Get(r.Context(), chi.URLParam(r, "bookId"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, book)
}

type bookMediaRequest struct {
	BookID string `json:"bookId"`
}

func (h *BookHandler) BookMedia(w http.ResponseWriter, r *http.Request) {
	var req bookMediaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	video, err := h.books.Media(r.Context(), req.BookID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, video)
}

// enrichRequest accepts a single id or a batch
type enrichRequest struct {
	BookID  string   `json:"book_id"`
	BookIDs []string `json:"book_ids"`
}

func (req enrichRequest) ids() []string {
	ids := make([]string, 0, len(req.BookIDs)+1)
	if id := strings.TrimSpace(req.BookID); id != "" {
		ids = append(ids, id)
	}
	for _, id := range req.BookIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *BookHandler) EnrichBooks(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	ids := req.ids()
	if len(ids) == 0 {
		respondWithError(w, r, fmt.Errorf("%w: book_id or book_ids is required", service.ErrValidation))
		return
	}

	results, err := h.books.Enrich(r.Context(), ids)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

type pregenRequest struct {
	Limit int `json:"limit"`
}

func (h *BookHandler) PregenerateQuizzes(w http.ResponseWriter, r *http.Request) {
	var req pregenRequest
	// an empty body means "use the default limit"
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
	}

	result, err := h.pregen.Run(r.Context(), req.Limit)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
