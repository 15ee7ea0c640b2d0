package content

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"readquest/internal/models"
)

// GoogleBooksClient queries the Google Books volumes API
type GoogleBooksClient struct {
	baseURL string
	apiKey  string
	req     *requester
}

func NewGoogleBooksClient(baseURL, apiKey string, client *http.Client) *GoogleBooksClient {
	return &GoogleBooksClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		req:     newRequester("google_books", client),
	}
}

type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title       string   `json:"title"`
		Subtitle    string   `json:"subtitle"`
		Authors     []string `json:"authors"`
		Description string   `json:"description"`
		ImageLinks  struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

type volumeList struct {
	Items []volume `json:"items"`
}

// Search returns up to max books matching query. Volumes without a title
// are dropped.
func (c *GoogleBooksClient) Search(ctx context.Context, query string, max int) ([]models.Book, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(max))
	params.Set("printType", "books")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var list volumeList
	if err := c.req.getJSON(ctx, c.baseURL+"/volumes?"+params.Encode(), &list); err != nil {
		return nil, err
	}

	books := make([]models.Book, 0, len(list.Items))
	for _, v := range list.Items {
		if book, ok := v.toBook(); ok {
			books = append(books, book)
		}
	}
	return books, nil
}

// Volume fetches a single volume by id
func (c *GoogleBooksClient) Volume(ctx context.Context, id string) (*models.Book, error) {
	endpoint := c.baseURL + "/volumes/" + url.PathEscape(id)
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	var v volume
	if err := c.req.getJSON(ctx, endpoint, &v); err != nil {
		return nil, err
	}
	book, ok := v.toBook()
	if !ok {
		return nil, fmt.Errorf("%w: volume %s has no title", ErrMalformedResponse, id)
	}
	return &book, nil
}

func (v volume) toBook() (models.Book, bool) {
	info := v.VolumeInfo
	if v.ID == "" || strings.TrimSpace(info.Title) == "" {
		return models.Book{}, false
	}

	cover := info.ImageLinks.Thumbnail
	if cover == "" {
		cover = info.ImageLinks.SmallThumbnail
	}
	cover = strings.Replace(cover, "http://", "https://", 1)

	id := v.ID
	return models.Book{
		Title:       strings.TrimSpace(info.Title),
		Author:      strings.Join(info.Authors, ", "),
		CoverURL:    cover,
		Description: CleanDescription(info.Description),
		Source:      models.BookSourceGoogleBooks,
		SourceID:    &id,
	}, true
}
