// Package links mines email bodies for candidate unsubscribe URLs.
package links

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Patterns matched against the plain-text body. Each match is a URL whose
// path or query hints at an unsubscribe endpoint.
var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://[^\s]+unsubscribe[^\s]*`),
	regexp.MustCompile(`(?i)https?://[^\s]+opt[_-]?out[^\s]*`),
	regexp.MustCompile(`(?i)https?://[^\s]+remove[^\s]*`),
	regexp.MustCompile(`(?i)https?://[^\s]+stop[^\s]*`),
}

// trailingJunk strips punctuation that commonly trails a URL embedded in
// prose or markup.
var trailingJunk = regexp.MustCompile(`[>)\].,;"'\n]+$`)

// Keywords checked against an anchor's visible text and its href.
var (
	anchorTextKeywords = []string{"unsubscribe", "opt out", "remove", "stop"}
	anchorHrefKeywords = []string{"unsubscribe", "opt-out", "optout", "remove"}
)

// Mine scans a plain-text body and an optional raw HTML body for candidate
// unsubscribe URLs. Results have set semantics: exact duplicates are
// collapsed and only absolute http(s) URLs are returned, sorted for
// deterministic output. An HTML parse failure degrades to text-only results.
func Mine(plainText, rawHTML string) []string {
	seen := make(map[string]struct{})

	for _, pattern := range textPatterns {
		for _, match := range pattern.FindAllString(plainText, -1) {
			url := trailingJunk.ReplaceAllString(match, "")
			seen[url] = struct{}{}
		}
	}

	if rawHTML != "" {
		mineHTML(rawHTML, seen)
	}

	urls := make([]string, 0, len(seen))
	for url := range seen {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// mineHTML collects anchor hrefs whose visible text or href contains an
// unsubscribe keyword.
func mineHTML(rawHTML string, seen map[string]struct{}) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return
	}

	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok || !isAbsoluteHTTP(href) {
			return
		}

		text := strings.ToLower(anchor.Text())
		for _, keyword := range anchorTextKeywords {
			if strings.Contains(text, keyword) {
				seen[href] = struct{}{}
				return
			}
		}

		lowerHref := strings.ToLower(href)
		for _, keyword := range anchorHrefKeywords {
			if strings.Contains(lowerHref, keyword) {
				seen[href] = struct{}{}
				return
			}
		}
	})
}

func isAbsoluteHTTP(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
