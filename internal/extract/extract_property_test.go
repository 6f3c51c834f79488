package extract

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	gmail "google.golang.org/api/gmail/v1"
)

func leaf(mimeType, content string) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: mimeType,
		Body: &gmail.MessagePartBody{
			Data: base64.URLEncoding.EncodeToString([]byte(content)),
		},
	}
}

func container(children ...*gmail.MessagePart) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts:    children,
	}
}

// Property: for any payload tree containing at least one text/plain leaf
// with enough content, extraction returns normalized text derived from the
// plain leaves only, ignoring sibling text/html leaves.
func TestProperty_PlainTextPreferredOverHTML(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	wordsGen := gen.SliceOfN(10, gen.AlphaChar()).Map(func(chars []rune) string {
		return "hello " + string(chars) + " world this is a plain body"
	})

	properties.Property("plain_leaf_wins_over_html_sibling", prop.ForAll(
		func(plain string) bool {
			tree := container(
				leaf("text/html", "<p>HTML ONLY MARKER</p>"),
				leaf("text/plain", plain),
			)
			got := Text(tree)
			return got == Normalize(plain) && !strings.Contains(got, "HTML ONLY MARKER")
		},
		wordsGen,
	))

	properties.Property("nested_plain_leaf_found", prop.ForAll(
		func(plain string) bool {
			tree := container(
				container(
					leaf("text/html", "<b>ignored</b>"),
					container(leaf("text/plain", plain)),
				),
			)
			return Text(tree) == Normalize(plain)
		},
		wordsGen,
	))

	properties.TestingRun(t)
}

// Property: HTML-only trees produce text with no script or style content
// and no unnormalized whitespace runs.
func TestProperty_HTMLOnlyStripped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	bodyGen := gen.SliceOfN(12, gen.AlphaChar()).Map(func(chars []rune) string {
		return "Welcome dear " + string(chars) + " customer to our shop"
	})

	properties.Property("script_and_style_removed", prop.ForAll(
		func(body string) bool {
			html := "<html><head><style>.x{color:red}</style>" +
				"<script>var secret = 1;</script></head>" +
				"<body><p>" + body + "</p></body></html>"
			got := Text(container(leaf("text/html", html)))
			if strings.Contains(got, "secret") || strings.Contains(got, "color:red") {
				return false
			}
			return !strings.Contains(got, "  ")
		},
		bodyGen,
	))

	properties.TestingRun(t)
}

// Property: normalization is idempotent.
func TestProperty_NormalizeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("normalize_twice_equals_once", prop.ForAll(
		func(text string) bool {
			once := Normalize(text)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestTextSentinel(t *testing.T) {
	cases := []struct {
		name string
		tree *gmail.MessagePart
	}{
		{"nil payload", nil},
		{"leafless container", container(container())},
		{"unsupported mime type", leaf("image/png", "not really an image")},
		{"too short body", leaf("text/plain", "hi there")},
		{"malformed base64", &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: "!!!not base64!!!"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.tree); got != Sentinel {
				t.Errorf("Text() = %q, want sentinel", got)
			}
		})
	}
}

func TestNormalizeReplacements(t *testing.T) {
	long := strings.Repeat("Ab1", 20) // 60 base64-ish chars

	cases := []struct {
		in   string
		want string
	}{
		{"visit   https://example.com/page?a=1 now", "visit [URL] now"},
		{"token " + long + "== end", "token [ENCODED_CONTENT] end"},
		{"wait.....for it", "wait...for it"},
		{"  spaced\t\nout  ", "spaced out"},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHTMLReturnsRawLeaves(t *testing.T) {
	tree := container(
		leaf("text/plain", "plain part"),
		container(leaf("text/html", "<p>first</p>")),
		leaf("text/html", "<p>second</p>"),
	)

	got := HTML(tree)
	if !strings.Contains(got, "<p>first</p>") || !strings.Contains(got, "<p>second</p>") {
		t.Errorf("HTML() missing leaves: %q", got)
	}
	if strings.Contains(got, "plain part") {
		t.Errorf("HTML() should not contain text/plain content: %q", got)
	}
}
