package googlenews

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/pkg/util"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper reads headlines from the Google News search page. It is the
// fallback when no news API key is configured or the API fails.
type Scraper struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
}

func New(baseURL, userAgent string, timeout time.Duration) *Scraper {
	if baseURL == "" {
		baseURL = "https://news.google.com"
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Scraper{baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, timeout: timeout}
}

// Headlines scrapes up to limit articles for symbol.
func (s *Scraper) Headlines(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	if symbol == "" {
		return nil, domrepo.ErrNoSymbol
	}
	if limit <= 0 {
		limit = 5
	}
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("googlenews base url: %w", err)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
		colly.UserAgent(s.userAgent),
	)
	c.SetRequestTimeout(s.timeout)

	articles := make([]models.NewsArticle, 0, limit)
	seen := make(map[string]struct{})
	c.OnHTML("article", func(e *colly.HTMLElement) {
		if len(articles) >= limit {
			return
		}
		title := strings.TrimSpace(e.ChildText("h3, h4"))
		if title == "" {
			title = strings.TrimSpace(e.DOM.Find("a").FilterFunction(func(_ int, sel *goquery.Selection) bool {
				return strings.TrimSpace(sel.Text()) != ""
			}).First().Text())
		}
		link := e.ChildAttr("a[href]", "href")
		if title == "" || link == "" {
			return
		}
		link = e.Request.AbsoluteURL(link)
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		art := models.NewsArticle{Title: title, URL: link, Source: sourceName(e.DOM)}
		if dt, ok := e.DOM.Find("time[datetime]").First().Attr("datetime"); ok {
			art.PublishedAt = util.ParseTimePtr(dt)
		}
		articles = append(articles, art)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("googlenews %s: status %d: %w", symbol, r.StatusCode, err)
	})

	q := url.Values{}
	q.Set("q", symbol+" stock")
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")
	if err := c.Visit(s.baseURL + "/search?" + q.Encode()); err != nil {
		if scrapeErr != nil {
			return nil, scrapeErr
		}
		return nil, fmt.Errorf("googlenews %s: %w", symbol, err)
	}
	c.Wait()
	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return articles, nil
}

// sourceName picks the publisher label inside an article card.
func sourceName(card *goquery.Selection) string {
	for _, sel := range []string{"[data-n-tid]", ".vr1PYe", "div > span"} {
		if name := strings.TrimSpace(card.Find(sel).First().Text()); name != "" {
			return name
		}
	}
	return "Google News"
}

var _ domrepo.NewsProvider = (*Scraper)(nil)
