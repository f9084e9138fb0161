package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// applyReadability lets go-readability pick the article body. Its metadata
// replaces the heuristic fields only where it found something.
func (e *Extractor) applyReadability(page *Page, rawHTML []byte, pageURL string) error {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(rawHTML), parsedURL)
	if err != nil {
		return fmt.Errorf("readability: %w", err)
	}

	overrideString(&page.Title, article.Title)
	overrideString(&page.Author, article.Byline)
	overrideString(&page.Description, article.Excerpt)

	if strings.TrimSpace(article.Content) != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
		if err != nil {
			return fmt.Errorf("parse article: %w", err)
		}
		applyRegion(page, doc.Selection)
	}

	e.logger.Debug("readability_extraction_result",
		zap.String("url", pageURL),
		zap.String("title", article.Title),
		zap.String("byline", article.Byline),
		zap.Int("text_length", len(article.TextContent)))

	return nil
}

func overrideString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

// applyRegion swaps in content and links from a reader-selected region,
// keeping the heuristic ones when the region yields no blocks.
func applyRegion(page *Page, region *goquery.Selection) {
	blocks := collectBlocks(region)
	if len(blocks) == 0 {
		return
	}
	page.Content = blocks
	page.RelatedLinks = collectLinks(region)
}
