package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const trafilaturaDateLayout = "2006-01-02"

func (e *Extractor) applyTrafilatura(page *Page, rawHTML []byte, pageURL string) error {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	result, err := trafilatura.Extract(bytes.NewReader(rawHTML), trafilatura.Options{
		OriginalURL: parsedURL,
	})
	if err != nil {
		return fmt.Errorf("trafilatura: %w", err)
	}

	overrideString(&page.Title, result.Metadata.Title)
	overrideString(&page.Author, result.Metadata.Author)
	overrideString(&page.Description, result.Metadata.Description)
	if !result.Metadata.Date.IsZero() {
		page.Date = result.Metadata.Date.Format(trafilaturaDateLayout)
	}

	if result.ContentNode != nil {
		applyRegion(page, goquery.NewDocumentFromNode(result.ContentNode).Selection)
	}

	e.logger.Debug("trafilatura_extraction_result",
		zap.String("url", pageURL),
		zap.String("title", result.Metadata.Title),
		zap.String("author", result.Metadata.Author),
		zap.String("language", result.Metadata.Language),
		zap.Int("text_length", len(result.ContentText)))

	return nil
}

// Markdown converts the page's main region to Markdown, or the whole body
// when no main region is found.
func (e *Extractor) Markdown(rawHTML []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	region := findMainRegion(doc)
	if region == nil {
		region = doc.Find("body").First()
	}
	if region.Length() == 0 {
		return "", nil
	}

	regionHTML, err := RenderNodeToString(region.Nodes[0])
	if err != nil {
		return "", fmt.Errorf("render region: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(regionHTML)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	e.logger.Debug("text_md",
		zap.String("url", pageURL),
		zap.Int("markdown_length", len(md)))

	return strings.TrimSpace(md), nil
}

// RenderNodeToString renders n and its children back to HTML.
func RenderNodeToString(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
