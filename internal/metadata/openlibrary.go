package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("book not found")
	ErrInvalidISBN = errors.New("invalid ISBN")
)

// BookMetadata is the normalized result of a remote lookup.
type BookMetadata struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	ISBN            string   `json:"isbn,omitempty"`
	PublishYear     int      `json:"publish_year,omitempty"`
	Publishers      []string `json:"publishers"`
	Subjects        []string `json:"subjects"`
	NumberOfPages   int      `json:"number_of_pages,omitempty"`
	CoverURL        string   `json:"cover_url,omitempty"`
	OpenLibraryCode string   `json:"openlibrary_code,omitempty"`
	Description     string   `json:"description,omitempty"`
}

type Config struct {
	BaseURL      string
	CoversURL    string
	UserAgent    string
	Timeout      time.Duration
	RateInterval time.Duration
	SearchLimit  int
	MaxSubjects  int
}

func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://openlibrary.org",
		CoversURL:    "https://covers.openlibrary.org",
		UserAgent:    "Bookshelf/1.0 (https://github.com/mrlokans/bookshelf)",
		Timeout:      10 * time.Second,
		RateInterval: time.Second,
		SearchLimit:  10,
		MaxSubjects:  10,
	}
}

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	cfg         Config
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		timer := time.NewTimer(r.interval - since)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewOpenLibraryClient creates a rate limited client. Zero config fields
// fall back to DefaultConfig.
func NewOpenLibraryClient(cfg Config) *OpenLibraryClient {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.CoversURL == "" {
		cfg.CoversURL = def.CoversURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateInterval < 0 {
		cfg.RateInterval = 0
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = def.SearchLimit
	}
	if cfg.MaxSubjects <= 0 {
		cfg.MaxSubjects = def.MaxSubjects
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.CoversURL = strings.TrimRight(cfg.CoversURL, "/")

	return &OpenLibraryClient{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		cfg:         cfg,
		rateLimiter: newRateLimiter(cfg.RateInterval),
	}
}

// LookupByISBN fetches the edition with the given ISBN. Author names are
// resolved with one extra request per author.
func (c *OpenLibraryClient) LookupByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	normalized := normalizeISBN(isbn)
	if normalized == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidISBN, isbn)
	}

	var edition openLibraryEdition
	if err := c.getJSON(ctx, fmt.Sprintf("/isbn/%s.json", normalized), &edition); err != nil {
		return nil, fmt.Errorf("lookup ISBN %s: %w", normalized, err)
	}

	meta := c.convertEdition(&edition, normalized)
	for _, ref := range edition.Authors {
		name, err := c.fetchAuthorName(ctx, ref.Key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		meta.Authors = append(meta.Authors, name)
	}
	return meta, nil
}

// Search runs a free-text query and returns the matches in API order.
func (c *OpenLibraryClient) Search(ctx context.Context, query string) ([]BookMetadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprint(c.cfg.SearchLimit))

	var result openLibrarySearchResult
	if err := c.getJSON(ctx, "/search.json?"+params.Encode(), &result); err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	out := make([]BookMetadata, 0, len(result.Docs))
	for i := range result.Docs {
		out = append(out, *c.convertSearchDoc(&result.Docs[i]))
	}
	return out, nil
}

// BestMatch picks the result closest to a title and author, preferring
// exact matches and results with ISBNs and covers.
func BestMatch(results []BookMetadata, title, author string) *BookMetadata {
	titleLower := strings.ToLower(strings.TrimSpace(title))
	authorLower := strings.ToLower(strings.TrimSpace(author))

	var best *BookMetadata
	bestScore := -1
	for i := range results {
		m := &results[i]
		score := 0

		if t := strings.ToLower(m.Title); t == titleLower {
			score += 10
		} else if titleLower != "" && strings.Contains(t, titleLower) {
			score += 5
		}

		if authorLower != "" {
			for _, a := range m.Authors {
				a = strings.ToLower(a)
				if a == authorLower {
					score += 10
					break
				} else if strings.Contains(a, authorLower) {
					score += 5
					break
				}
			}
		}

		if m.ISBN != "" {
			score += 2
		}
		if m.CoverURL != "" {
			score++
		}

		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	return best
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, dest any) error {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}
	var author struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, authorKey+".json", &author); err != nil {
		return "", err
	}
	if author.Name == "" {
		return "", fmt.Errorf("author %s has no name", authorKey)
	}
	return author.Name, nil
}

func (c *OpenLibraryClient) coverByISBN(isbn string) string {
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.cfg.CoversURL, isbn)
}

func (c *OpenLibraryClient) coverByID(id int) string {
	return fmt.Sprintf("%s/b/id/%d-L.jpg", c.cfg.CoversURL, id)
}

func (c *OpenLibraryClient) convertEdition(e *openLibraryEdition, isbn string) *BookMetadata {
	meta := &BookMetadata{
		Title:           e.Title,
		Authors:         []string{},
		ISBN:            isbn,
		Publishers:      nonNil(e.Publishers),
		Subjects:        c.limitSubjects(e.Subjects),
		NumberOfPages:   e.NumberOfPages,
		OpenLibraryCode: openLibraryCode(e.Key),
		PublishYear:     extractYear(e.PublishDate),
		CoverURL:        c.coverByISBN(isbn),
	}
	if len(e.Covers) > 0 && e.Covers[0] > 0 {
		meta.CoverURL = c.coverByID(e.Covers[0])
	}

	switch v := e.Description.(type) {
	case string:
		meta.Description = v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			meta.Description = val
		}
	}
	return meta
}

func (c *OpenLibraryClient) convertSearchDoc(doc *openLibrarySearchDoc) *BookMetadata {
	meta := &BookMetadata{
		Title:           doc.Title,
		Authors:         nonNil(doc.AuthorName),
		PublishYear:     doc.FirstPublishYear,
		Publishers:      nonNil(doc.Publisher),
		Subjects:        c.limitSubjects(doc.Subject),
		NumberOfPages:   doc.NumberOfPagesMedian,
		OpenLibraryCode: openLibraryCode(doc.CoverEditionKey),
	}
	if len(doc.ISBN) > 0 {
		meta.ISBN = doc.ISBN[0]
	}

	switch {
	case doc.CoverI != 0:
		meta.CoverURL = c.coverByID(doc.CoverI)
	case meta.ISBN != "":
		meta.CoverURL = c.coverByISBN(meta.ISBN)
	}
	return meta
}

func (c *OpenLibraryClient) limitSubjects(subjects []string) []string {
	if len(subjects) > c.cfg.MaxSubjects {
		subjects = subjects[:c.cfg.MaxSubjects]
	}
	return nonNil(subjects)
}

// openLibraryCode strips the path from keys such as "/books/OL7353617M".
func openLibraryCode(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	return key
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// normalizeISBN removes hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	// Basic validation: ISBN-10 or ISBN-13
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}

	return isbn
}

// extractYear tries to extract a 4-digit year from a date string.
func extractYear(dateStr string) int {
	dateStr = strings.TrimSpace(dateStr)
	if len(dateStr) < 4 {
		return 0
	}

	formats := []string{
		"2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2006-01-02",
		"January 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Year()
		}
	}

	// Last resort: find 4 consecutive digits
	for i := 0; i <= len(dateStr)-4; i++ {
		if dateStr[i] >= '0' && dateStr[i] <= '9' {
			yearStr := dateStr[i : i+4]
			var year int
			if _, err := fmt.Sscanf(yearStr, "%d", &year); err == nil && year > 1000 && year < 3000 {
				return year
			}
		}
	}

	return 0
}

// OpenLibrary API response types (internal)

type openLibraryEdition struct {
	Key           string      `json:"key"`
	Title         string      `json:"title"`
	Authors       []authorRef `json:"authors"`
	Publishers    []string    `json:"publishers"`
	PublishDate   string      `json:"publish_date"`
	NumberOfPages int         `json:"number_of_pages"`
	Description   any         `json:"description"` // string or {type, value}
	Subjects      []string    `json:"subjects"`
	Covers        []int       `json:"covers"`
}

type authorRef struct {
	Key string `json:"key"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    int      `json:"first_publish_year"`
	Publisher           []string `json:"publisher"`
	ISBN                []string `json:"isbn"`
	CoverI              int      `json:"cover_i"`
	CoverEditionKey     string   `json:"cover_edition_key"`
	Subject             []string `json:"subject"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
}
