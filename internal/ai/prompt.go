package ai

import (
	"fmt"
	"strings"
)

const (
	// MaxPromptExamples caps how many spam exemplars are embedded in the
	// session template.
	MaxPromptExamples = 10
	// exampleFieldLimit caps exemplar subject and sender lengths.
	exampleFieldLimit = 100
	// exampleBodyLimit caps exemplar body length.
	exampleBodyLimit = 1000
)

// SpamExample is a previously-confirmed spam message embedded in the prompt
// to anchor the classifier on the user's own spam.
type SpamExample struct {
	Subject string
	Sender  string
	Body    string
}

// PromptTemplate holds the classification prompt with placeholders for the
// email under analysis. It is built once per session and treated as
// read-only by all concurrent classification calls.
type PromptTemplate struct {
	text string
}

const (
	subjectPlaceholder = "{subject}"
	senderPlaceholder  = "{sender}"
	bodyPlaceholder    = "{body}"
)

// BuildPromptTemplate assembles the session classification prompt from the
// fixed instruction body, a description of the mailbox owner and up to
// MaxPromptExamples spam exemplars.
func BuildPromptTemplate(userDescription string, examples []SpamExample) *PromptTemplate {
	var examplesText strings.Builder
	if len(examples) > 0 {
		examplesText.WriteString("\n\nHere are examples of emails that were previously identified as spam:\n")
		for i, example := range examples {
			if i >= MaxPromptExamples {
				break
			}
			examplesText.WriteString(fmt.Sprintf("\nSpam Example %d:\n", i+1))
			examplesText.WriteString("Subject: " + truncate(example.Subject, exampleFieldLimit) + "\n")
			examplesText.WriteString("From: " + truncate(example.Sender, exampleFieldLimit) + "\n")
			examplesText.WriteString("Body: " + truncate(example.Body, exampleBodyLimit) + "\n")
		}
	}

	text := fmt.Sprintf(`You are analyzing the inbox of %s.

You should classify emails as either SPAM or NOT_SPAM, dependent on whether the user wants them to appear in their main inbox.

Typically, SPAM emails include unsolicited promotional or informational content, but you should use your judgment on what a user might want to see. Keep in mind your knowledge of the user preferences. Some examples of emails the user has classified as SPAM in the past are:
%s
===================================================================
Email to Analyze:
Subject: %s
From: %s
Body: %s

Based on the above criteria and spam examples, respond with only "SPAM" or "NOT_SPAM" followed by a brief reason.`,
		userDescription, examplesText.String(),
		subjectPlaceholder, senderPlaceholder, bodyPlaceholder)

	return &PromptTemplate{text: text}
}

// Fill substitutes the email under analysis into the template.
func (t *PromptTemplate) Fill(subject, sender, body string) string {
	replacer := strings.NewReplacer(
		subjectPlaceholder, subject,
		senderPlaceholder, sender,
		bodyPlaceholder, body,
	)
	return replacer.Replace(t.text)
}

// Text returns the raw template text.
func (t *PromptTemplate) Text() string {
	return t.text
}

// truncate limits s to max bytes, dropping any rune split by the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "")
}
