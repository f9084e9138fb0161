// Package command recognises the slash commands a language model embeds in
// its replies to drive the browser.
package command

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies which command a reply carries.
type Kind int

const (
	None Kind = iota
	Search
	Click
	OpenLink
	SearchDone
)

func (k Kind) String() string {
	switch k {
	case Search:
		return "search"
	case Click:
		return "click"
	case OpenLink:
		return "open_link"
	case SearchDone:
		return "search_done"
	}
	return "none"
}

// Command is the single action found in a reply. Only the field matching
// Kind is set.
type Command struct {
	Kind     Kind
	Query    string
	ResultID int
	URL      string
}

const searchDoneMarker = "/search_done"

var (
	searchPattern   = regexp.MustCompile(`/search="([^"]*)"`)
	clickPattern    = regexp.MustCompile(`/click=(\d+)`)
	openLinkPattern = regexp.MustCompile(`/open_link="([^"]*)"`)
)

// Parse finds the highest-priority command anywhere in text: search, then
// click, then open_link, then search_done.
func Parse(text string) Command {
	if m := searchPattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: Search, Query: m[1]}
	}
	if m := clickPattern.FindStringSubmatch(text); m != nil {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			// Too large for an int; no result list can hold it.
			id = -1
		}
		return Command{Kind: Click, ResultID: id}
	}
	if m := openLinkPattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: OpenLink, URL: m[1]}
	}
	if strings.Contains(text, searchDoneMarker) {
		return Command{Kind: SearchDone}
	}
	return Command{Kind: None}
}
