package crawler

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	NoTitle        = "No title"
	DateNotFound   = "Date not found"
	AuthorNotFound = "Author not found"

	// Blocks must be strictly longer than this many characters.
	minBlockLength  = 20
	maxRelatedLinks = 10
)

var (
	contentClassPattern = regexp.MustCompile(`(?i)content|article|news`)
	dateClassPattern    = regexp.MustCompile(`(?i)date|time|published`)
	authorClassPattern  = regexp.MustCompile(`(?i)author|byline`)
)

// Page is the structured record extracted from one HTML document.
type Page struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Date         string   `json:"date"`
	Author       string   `json:"author"`
	Content      []string `json:"content"`
	Keywords     []string `json:"keywords"`
	RelatedLinks []string `json:"related_links"`
	WordCount    int      `json:"word_count"`
	URL          string   `json:"url"`
	ExtractedAt  string   `json:"extracted_at"`
}

// Strategy selects how the main content is located.
type Strategy string

const (
	StrategyHeuristic   Strategy = "heuristic"
	StrategyReadability Strategy = "readability"
	StrategyTrafilatura Strategy = "trafilatura"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyHeuristic, StrategyReadability, StrategyTrafilatura:
		return true
	}
	return false
}

// Extractor turns raw HTML into a Page.
type Extractor struct {
	strategy Strategy
	logger   *zap.Logger
	// Now stamps extracted_at. Defaults to time.Now.
	Now func() time.Time
}

// NewExtractor returns an Extractor for strategy. An empty strategy means heuristic.
func NewExtractor(strategy Strategy, logger *zap.Logger) *Extractor {
	if strategy == "" {
		strategy = StrategyHeuristic
	}
	return &Extractor{
		strategy: strategy,
		logger:   logger,
		Now:      time.Now,
	}
}

// Extract runs the field heuristics over rawHTML. Each heuristic is
// independent and falls back to its own default when nothing matches.
func (e *Extractor) Extract(rawHTML []byte, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	main := findMainRegion(doc)

	page := &Page{
		Title:        extractTitle(doc),
		Description:  metaContent(doc, "description"),
		Date:         extractDate(doc),
		Author:       extractAuthor(doc),
		Keywords:     extractKeywords(doc),
		RelatedLinks: []string{},
		URL:          pageURL,
		ExtractedAt:  e.Now().Format(time.RFC3339),
	}

	if main != nil {
		page.Content = collectBlocks(main)
		page.RelatedLinks = collectLinks(main)
	} else {
		page.Content = collectTextNodes(doc.Nodes...)
	}

	switch e.strategy {
	case StrategyReadability:
		if err := e.applyReadability(page, rawHTML, pageURL); err != nil {
			e.logger.Warn("readability failed, keeping heuristic result",
				zap.String("url", pageURL),
				zap.Error(err))
		}
	case StrategyTrafilatura:
		if err := e.applyTrafilatura(page, rawHTML, pageURL); err != nil {
			e.logger.Warn("trafilatura failed, keeping heuristic result",
				zap.String("url", pageURL),
				zap.Error(err))
		}
	}

	page.Content = dedupe(page.Content)
	page.WordCount = countWords(page.Content)

	e.logger.Debug("extracted page",
		zap.String("url", pageURL),
		zap.String("strategy", string(e.strategy)),
		zap.Bool("main_region", main != nil),
		zap.Int("blocks", len(page.Content)),
		zap.Int("word_count", page.WordCount))

	return page, nil
}

func extractTitle(doc *goquery.Document) string {
	title := doc.Find("title").First()
	if title.Length() == 0 {
		return NoTitle
	}
	return strings.TrimSpace(title.Text())
}

// findMainRegion returns the first <main>, <article> or content-like <div>,
// or nil when the page has none.
func findMainRegion(doc *goquery.Document) *goquery.Selection {
	if s := doc.Find("main").First(); s.Length() > 0 {
		return s
	}
	if s := doc.Find("article").First(); s.Length() > 0 {
		return s
	}
	if s := firstWithClass(doc.Find("div"), contentClassPattern); s.Length() > 0 {
		return s
	}
	return nil
}

func firstWithClass(s *goquery.Selection, pattern *regexp.Regexp) *goquery.Selection {
	return s.FilterFunction(func(_ int, el *goquery.Selection) bool {
		class, ok := el.Attr("class")
		return ok && pattern.MatchString(class)
	}).First()
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return content
}

func extractDate(doc *goquery.Document) string {
	if s := doc.Find("time").First(); s.Length() > 0 {
		return strings.TrimSpace(s.Text())
	}
	if s := firstWithClass(doc.Find("span"), dateClassPattern); s.Length() > 0 {
		return strings.TrimSpace(s.Text())
	}
	return DateNotFound
}

func extractAuthor(doc *goquery.Document) string {
	if s := firstWithClass(doc.Find("span"), authorClassPattern); s.Length() > 0 {
		return strings.TrimSpace(s.Text())
	}
	if content, ok := doc.Find(`meta[name="author"]`).First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return AuthorNotFound
}

func extractKeywords(doc *goquery.Document) []string {
	content, ok := doc.Find(`meta[name="keywords"]`).First().Attr("content")
	if !ok {
		return []string{}
	}
	return strings.Split(content, ",")
}

// collectBlocks returns paragraph and heading text under region in
// document order.
func collectBlocks(region *goquery.Selection) []string {
	blocks := []string{}
	region.Find("p, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) > minBlockLength {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

func collectLinks(region *goquery.Selection) []string {
	links := []string{}
	region.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		links = append(links, href)
		return len(links) < maxRelatedLinks
	})
	return links
}

// collectTextNodes walks every text node under roots, skipping text that
// sits directly in non-content elements or at the document root.
func collectTextNodes(roots ...*html.Node) []string {
	blocks := []string{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && !skipTextParent(n.Parent) {
			text := strings.TrimSpace(n.Data)
			if utf8.RuneCountInString(text) > minBlockLength {
				blocks = append(blocks, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return blocks
}

func skipTextParent(parent *html.Node) bool {
	if parent == nil || parent.Type == html.DocumentNode {
		return true
	}
	switch parent.Data {
	case "style", "script", "head", "title", "meta":
		return true
	}
	return false
}

func dedupe(blocks []string) []string {
	seen := make(map[string]struct{}, len(blocks))
	unique := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		unique = append(unique, b)
	}
	return unique
}

func countWords(blocks []string) int {
	total := 0
	for _, b := range blocks {
		total += len(strings.Fields(b))
	}
	return total
}
