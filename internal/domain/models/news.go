package models

import "time"

// NewsArticle is a recent headline for a symbol.
type NewsArticle struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}
