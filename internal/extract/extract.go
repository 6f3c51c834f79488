// Package extract converts the nested MIME payload tree returned by the
// Gmail API into a single normalized plain-text body suitable for
// classification, or into the raw HTML body used for link mining.
package extract

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	gmail "google.golang.org/api/gmail/v1"
)

const (
	// MinBodyLength is the minimum length of a normalized body before it
	// is replaced by the Sentinel.
	MinBodyLength = 20
	// Sentinel is returned when no usable body could be extracted.
	Sentinel = "[Email body could not be extracted or is very short]"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	urlPattern        = regexp.MustCompile(`https?://[^\s]+`)
	encodedPattern    = regexp.MustCompile(`[a-zA-Z0-9+/]{50,}={0,2}`)
	ellipsisPattern   = regexp.MustCompile(`[.]{3,}`)
)

// Text extracts a normalized plain-text body from the payload tree.
// text/plain leaves are preferred; if none carry content, the concatenated
// text/html leaves are stripped down to their visible text. If the result is
// empty or shorter than MinBodyLength the Sentinel is returned instead.
func Text(payload *gmail.MessagePart) string {
	textBody, htmlBody := walk(payload)

	var final string
	if textBody != "" {
		final = Normalize(textBody)
	} else if htmlBody != "" {
		final = Normalize(htmlToText(htmlBody))
	}

	if final == "" || len(final) < MinBodyLength {
		return Sentinel
	}
	return final
}

// HTML extracts the concatenated raw text/html leaves from the payload tree.
// It returns an empty string when the message has no HTML content.
func HTML(payload *gmail.MessagePart) string {
	_, htmlBody := walk(payload)
	return htmlBody
}

// walk performs a depth-first traversal of the payload tree, accumulating
// decoded text/plain and text/html leaf content separately. A part with
// children is a container; everything else is a leaf.
func walk(part *gmail.MessagePart) (textBody, htmlBody string) {
	if part == nil {
		return "", ""
	}

	if len(part.Parts) > 0 {
		for _, child := range part.Parts {
			nestedText, nestedHTML := walk(child)
			textBody += nestedText
			htmlBody += nestedHTML
		}
		return textBody, htmlBody
	}

	if part.Body == nil || part.Body.Data == "" {
		return "", ""
	}

	switch part.MimeType {
	case "text/plain":
		textBody = decodeBody(part.Body.Data) + "\n"
	case "text/html":
		htmlBody = decodeBody(part.Body.Data) + "\n"
	}
	return textBody, htmlBody
}

// decodeBody decodes the URL-safe base64 body data of a leaf part.
// Malformed input yields an empty string and invalid UTF-8 bytes are
// dropped; a bad leaf never fails the whole message.
func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return strings.ToValidUTF8(string(decoded), "")
}

// htmlToText strips an HTML document down to its visible text. Script,
// style, meta and link elements are removed and the remaining text nodes
// are joined with whitespace. A parse failure falls back to the raw input.
func htmlToText(htmlBody string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return htmlBody
	}

	doc.Find("script, style, meta, link").Remove()

	text := doc.Text()
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, " ")
}

// Normalize cleans extracted body text: whitespace runs collapse to a single
// space, URLs and long transport-encoded runs become placeholder tokens, and
// runs of periods collapse to an ellipsis. Normalizing already-normalized
// text is a no-op.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = whitespacePattern.ReplaceAllString(text, " ")
	text = urlPattern.ReplaceAllString(text, "[URL]")
	text = encodedPattern.ReplaceAllString(text, "[ENCODED_CONTENT]")
	text = ellipsisPattern.ReplaceAllString(text, "...")

	return strings.TrimSpace(text)
}
