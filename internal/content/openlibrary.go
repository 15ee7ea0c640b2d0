package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// OpenLibraryClient looks up work descriptions on Open Library
type OpenLibraryClient struct {
	baseURL string
	req     *requester
}

func NewOpenLibraryClient(baseURL string, client *http.Client) *OpenLibraryClient {
	return &OpenLibraryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		req:     newRequester("open_library", client),
	}
}

type openLibrarySearch struct {
	Docs []struct {
		Key string `json:"key"`
	} `json:"docs"`
}

type openLibraryWork struct {
	Description json.RawMessage `json:"description"`
}

// FindDescription returns the description of the best-matching work, or ""
// when Open Library has none.
func (c *OpenLibraryClient) FindDescription(ctx context.Context, title, author string) (string, error) {
	params := url.Values{}
	params.Set("title", title)
	if author != "" {
		params.Set("author", author)
	}
	params.Set("limit", "1")

	var search openLibrarySearch
	if err := c.req.getJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), &search); err != nil {
		return "", err
	}
	if len(search.Docs) == 0 || !strings.HasPrefix(search.Docs[0].Key, "/works/") {
		return "", nil
	}

	var work openLibraryWork
	if err := c.req.getJSON(ctx, c.baseURL+search.Docs[0].Key+".json", &work); err != nil {
		return "", err
	}
	return CleanDescription(decodeDescription(work.Description)), nil
}

// decodeDescription accepts both shapes Open Library uses: a bare string or
// {"type": "/type/text", "value": "..."}.
func decodeDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &typed); err == nil {
		return typed.Value
	}
	return ""
}
