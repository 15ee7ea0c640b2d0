package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"readquest/internal/content"
	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/validation"
)

const (
	searchResultLimit = 20
	maxEnrichBatch    = 50
)

// Enrichment outcome labels
const (
	EnrichSourceExisting = "existing"
	EnrichErrNotFound    = "not_found"
	EnrichErrNoData      = "insufficient_data"
)

// EnrichResult reports what happened to one book during enrichment
type EnrichResult struct {
	BookID  string `json:"book_id"`
	Success bool   `json:"success"`
	Source  string `json:"source,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BookService owns the catalog and its upstream content sources
type BookService struct {
	books       *repository.BookRepository
	videos      *repository.BookVideoRepository
	googleBooks *content.GoogleBooksClient
	openLibrary *content.OpenLibraryClient
	youtube     *content.YouTubeClient
}

func NewBookService(books *repository.BookRepository, videos *repository.BookVideoRepository, googleBooks *content.GoogleBooksClient, openLibrary *content.OpenLibraryClient, youtube *content.YouTubeClient) *BookService {
	return &BookService{
		books:       books,
		videos:      videos,
		googleBooks: googleBooks,
		openLibrary: openLibrary,
		youtube:     youtube,
	}
}

// Search queries Google Books and stores every hit. When the upstream is
// unavailable the local catalog is searched instead.
func (s *BookService) Search(ctx context.Context, query string) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid(validation.ValidationError{Field: "query", Message: "is required"})
	}

	found, err := s.googleBooks.Search(ctx, query, searchResultLimit)
	if err != nil {
		logger.Warn("book search upstream failed, using local catalog", "query", query, "error", err)
		local, localErr := s.books.SearchLocal(ctx, query, searchResultLimit)
		if localErr != nil {
			return nil, fmt.Errorf("failed to search books: %w", errors.Join(err, localErr))
		}
		return local, nil
	}

	books := make([]models.Book, 0, len(found))
	for i := range found {
		stored, err := s.books.UpsertBySourceID(ctx, &found[i])
		if err != nil {
			return nil, fmt.Errorf("failed to store book %q: %w", found[i].Title, err)
		}
		books = append(books, *stored)
	}
	return books, nil
}

// Get returns a book by id
func (s *BookService) Get(ctx context.Context, id string) (*models.Book, error) {
	if err := validation.ValidateUUID("id", id); err != nil {
		return nil, invalid(err)
	}
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// Delete removes a book together with its templates, history and caches
func (s *BookService) Delete(ctx context.Context, id string) error {
	deleted, err := s.books.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if !deleted {
		return ErrBookNotFound
	}
	logger.Info("book deleted", "book_id", id)
	return nil
}

// Enrich tops up descriptions for a batch of books. Each book is reported
// independently; one failure does not stop the batch.
func (s *BookService) Enrich(ctx context.Context, bookIDs []string) ([]EnrichResult, error) {
	if len(bookIDs) == 0 {
		return nil, invalid(validation.ValidationError{Field: "book_ids", Message: "is required"})
	}
	if len(bookIDs) > maxEnrichBatch {
		return nil, invalid(validation.ValidationError{Field: "book_ids", Message: fmt.Sprintf("at most %d per request", maxEnrichBatch)})
	}

	results := make([]EnrichResult, 0, len(bookIDs))
	for _, id := range bookIDs {
		results = append(results, s.enrichOne(ctx, id))
	}
	return results, nil
}

// EnrichBook runs one enrichment pass and returns the stored book
func (s *BookService) EnrichBook(ctx context.Context, bookID string) (*models.Book, error) {
	result := s.enrichOne(ctx, bookID)
	if result.Error == EnrichErrNotFound {
		return nil, ErrBookNotFound
	}
	return s.books.GetByID(ctx, bookID)
}

func (s *BookService) enrichOne(ctx context.Context, bookID string) EnrichResult {
	result := EnrichResult{BookID: bookID}
	if err := validation.ValidateUUID("book_id", bookID); err != nil {
		result.Error = err.Error()
		return result
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if book == nil {
		result.Error = EnrichErrNotFound
		return result
	}

	best := book.Description
	source := EnrichSourceExisting
	var upstreamErrs []error

	if book.Source == models.BookSourceGoogleBooks && book.ExternalID() != "" {
		volume, err := s.googleBooks.Volume(ctx, book.ExternalID())
		if err != nil {
			upstreamErrs = append(upstreamErrs, err)
		} else if len(volume.Description) > len(best) {
			best = volume.Description
			source = models.BookSourceGoogleBooks
		}
	}

	if len(strings.TrimSpace(best)) < content.MinDescriptionLength {
		desc, err := s.openLibrary.FindDescription(ctx, book.Title, book.Author)
		if err != nil {
			upstreamErrs = append(upstreamErrs, err)
		} else if len(desc) > len(best) {
			best = desc
			source = models.BookSourceOpenLibrary
		}
	}

	if best != book.Description {
		book.Description = best
		if err := s.books.Update(ctx, book); err != nil {
			result.Error = err.Error()
			return result
		}
		logger.Info("book enriched", "book_id", book.ID, "source", source, "length", len(best))
	}

	result.Source = source
	if !content.HasSufficientMaterial(book) {
		result.Error = EnrichErrNoData
		if len(upstreamErrs) > 0 {
			result.Error = errors.Join(upstreamErrs...).Error()
		}
		return result
	}
	result.Success = true
	return result
}

// Media returns the cached read-aloud lookup for a book, querying YouTube on
// a cache miss. Misses are cached too.
func (s *BookService) Media(ctx context.Context, bookID string) (*models.BookVideo, error) {
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	cached, err := s.videos.Get(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load media cache: %w", err)
	}
	if cached != nil {
		return cached, nil
	}

	if s.youtube == nil || !s.youtube.Enabled() {
		return &models.BookVideo{BookID: book.ID, HasVideo: false}, nil
	}

	video, err := s.youtube.FindReadAloud(ctx, book.Title, book.Author)
	if err != nil {
		return nil, fmt.Errorf("failed to look up read-aloud video: %w", err)
	}
	video.BookID = book.ID
	if err := s.videos.Save(ctx, video); err != nil {
		logger.Warn("failed to cache media lookup", "book_id", book.ID, "error", err)
	}
	return video, nil
}
