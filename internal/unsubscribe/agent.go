// Package unsubscribe automates unsubscribe attempts against candidate URLs
// mined from spam messages: fetch the page, find a confirmation form if one
// exists, and submit it.
package unsubscribe

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// MaxAttempts caps how many URLs are tried per message.
	MaxAttempts = 3
	// requestTimeout bounds each network round trip.
	requestTimeout = 10 * time.Second
	// userAgent mimics a browser; many unsubscribe endpoints reject
	// obviously non-browser clients.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Keywords that mark a form as an unsubscribe confirmation form.
var formKeywords = []string{"unsubscribe", "remove", "opt out", "confirm"}

// Agent performs unsubscribe attempts. The underlying HTTP client keeps a
// cookie jar so cookies set by the initial GET apply to the form submission.
type Agent struct {
	client *http.Client
}

// NewAgent creates an Agent with a fresh cookie session.
func NewAgent() *Agent {
	jar, _ := cookiejar.New(nil)
	return &Agent{
		client: &http.Client{
			Timeout: requestTimeout,
			Jar:     jar,
		},
	}
}

// Attempt tries to unsubscribe via the first MaxAttempts URLs, sequentially,
// and returns how many attempts succeeded. URLs are processed in mining
// order; each outcome is independent and failures never abort the loop.
func (a *Agent) Attempt(urls []string) int {
	successCount := 0

	for i, candidate := range urls {
		if i >= MaxAttempts {
			break
		}
		if a.attemptOne(candidate) {
			successCount++
		}
	}

	return successCount
}

// attemptOne runs the fetch → parse → optional form-submit sequence for a
// single URL. It succeeds when a matching form submits with status 200/302,
// or when the page returns 2xx and carries no unsubscribe form at all.
func (a *Agent) attemptOne(candidate string) bool {
	resp, err := a.get(candidate)
	if err != nil {
		log.Printf("[Unsubscribe] GET %s failed: %v", candidate, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[Unsubscribe] GET %s returned status %d", candidate, resp.StatusCode)
		return false
	}

	// The redirect-followed response URL is the base for form actions.
	pageURL := resp.Request.URL

	// Read the body before parsing: a connection that dies mid-stream is a
	// network failure for this URL, not an unparseable-but-fetched page.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Unsubscribe] reading %s failed: %v", candidate, err)
		return false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		// Page fully fetched but unparseable; the GET itself may have
		// been enough to unsubscribe.
		return true
	}

	form := findUnsubscribeForm(doc)
	if form == nil {
		// No confirmation form; the 2xx GET already did the job.
		return true
	}

	return a.submitForm(pageURL, form)
}

func (a *Agent) get(rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return a.client.Do(req)
}

// findUnsubscribeForm returns the first form whose visible text contains an
// unsubscribe-intent keyword, or nil when no form matches.
func findUnsubscribeForm(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection

	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		text := strings.ToLower(form.Text())
		for _, keyword := range formKeywords {
			if strings.Contains(text, keyword) {
				found = form
				return false
			}
		}
		return true
	})

	return found
}

// submitForm resolves the form action against the page URL, collects the
// input/select values and submits via POST or GET per the form's method.
// Success is a 200 or 302 submit response.
func (a *Agent) submitForm(pageURL *url.URL, form *goquery.Selection) bool {
	actionURL := pageURL
	if action := strings.TrimSpace(form.AttrOr("action", "")); action != "" {
		resolved, err := pageURL.Parse(action)
		if err != nil {
			log.Printf("[Unsubscribe] bad form action %q: %v", action, err)
			return false
		}
		actionURL = resolved
	}

	data := collectFormData(form)
	method := strings.ToLower(form.AttrOr("method", "get"))

	var resp *http.Response
	var err error
	if method == "post" {
		resp, err = a.postForm(actionURL.String(), data)
	} else {
		resp, err = a.getForm(actionURL, data)
	}
	if err != nil {
		log.Printf("[Unsubscribe] form submit to %s failed: %v", actionURL, err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusFound
}

// collectFormData gathers name→value pairs from input and select elements,
// excluding submit, button and reset controls.
func collectFormData(form *goquery.Selection) url.Values {
	data := url.Values{}

	form.Find("input, select").Each(func(_ int, field *goquery.Selection) {
		name := field.AttrOr("name", "")
		if name == "" {
			return
		}
		fieldType := strings.ToLower(field.AttrOr("type", ""))
		switch fieldType {
		case "submit", "button", "reset":
			return
		}
		data.Set(name, field.AttrOr("value", ""))
	})

	return data
}

func (a *Agent) postForm(actionURL string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, actionURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.client.Do(req)
}

func (a *Agent) getForm(actionURL *url.URL, data url.Values) (*http.Response, error) {
	submitURL := *actionURL
	query := submitURL.Query()
	for key, values := range data {
		for _, value := range values {
			query.Set(key, value)
		}
	}
	submitURL.RawQuery = query.Encode()

	return a.get(submitURL.String())
}
