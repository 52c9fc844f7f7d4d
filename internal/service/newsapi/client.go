package newsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/internal/service/upstream"
	"ChartVerdict/pkg/util"
)

// Client searches NewsAPI's /v2/everything endpoint for recent headlines.
type Client struct {
	base     *upstream.HTTPServiceBase
	apiKey   string
	language string
}

func New(baseURL, apiKey, language string, timeout time.Duration) *Client {
	if language == "" {
		language = "en"
	}
	return &Client{
		base:     upstream.NewHTTPServiceBase("newsapi", baseURL, timeout),
		apiKey:   apiKey,
		language: language,
	}
}

type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Headlines returns up to limit articles, newest first.
func (c *Client) Headlines(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	if symbol == "" {
		return nil, domrepo.ErrNoSymbol
	}
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{}
	q.Set("q", symbol)
	q.Set("language", c.language)
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(limit))
	q.Set("apiKey", c.apiKey)

	var resp everythingResponse
	if err := c.base.GetJSON(ctx, "/v2/everything", q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s: %s: %s", symbol, resp.Code, resp.Message)
	}

	out := make([]models.NewsArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		title := strings.TrimSpace(a.Title)
		// removed articles are returned as "[Removed]" placeholders
		if title == "" || title == "[Removed]" || a.URL == "" {
			continue
		}
		out = append(out, models.NewsArticle{
			Title:       title,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: util.ParseTimePtr(a.PublishedAt),
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ domrepo.NewsProvider = (*Client)(nil)
