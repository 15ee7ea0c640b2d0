package content

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"readquest/internal/models"
)

// YouTubeClient searches the YouTube Data API for read-aloud videos
type YouTubeClient struct {
	baseURL string
	apiKey  string
	req     *requester
}

func NewYouTubeClient(baseURL, apiKey string, client *http.Client) *YouTubeClient {
	return &YouTubeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		req:     newRequester("youtube", client),
	}
}

// Enabled reports whether an API key is configured
func (c *YouTubeClient) Enabled() bool {
	return c.apiKey != ""
}

type youtubeSearch struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// FindReadAloud returns the top safe-search result for "<title> <author>
// read aloud". A result with HasVideo=false means nothing matched.
func (c *YouTubeClient) FindReadAloud(ctx context.Context, title, author string) (*models.BookVideo, error) {
	query := strings.TrimSpace(title + " " + author + " read aloud")
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("safeSearch", "strict")
	params.Set("q", query)
	params.Set("key", c.apiKey)

	var search youtubeSearch
	if err := c.req.getJSON(ctx, c.baseURL+"/search?"+params.Encode(), &search); err != nil {
		return nil, err
	}

	for _, item := range search.Items {
		if item.ID.VideoID == "" {
			continue
		}
		return &models.BookVideo{
			HasVideo:     true,
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
		}, nil
	}
	return &models.BookVideo{HasVideo: false}, nil
}
