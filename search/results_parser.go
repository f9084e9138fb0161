package search

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseResults reads the result blocks of a results page in document
// order. A block without a title or a linked anchor is skipped and its id
// is not reused.
func ParseResults(body []byte, engine Engine) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	results := []SearchResult{}
	doc.Find(engine.ResultSelector).Each(func(i int, block *goquery.Selection) {
		title := block.Find(engine.TitleSelector).First()
		link := block.Find(engine.LinkSelector).First()
		if title.Length() == 0 || link.Length() == 0 {
			return
		}
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		results = append(results, SearchResult{
			ID:    i,
			Title: strings.TrimSpace(title.Text()),
			Link:  href,
		})
	})

	return results, nil
}
