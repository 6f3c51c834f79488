// Package gmail wraps the Gmail REST API for the spam scanning pipeline:
// listing recent inbox messages, fetching raw HTML bodies, collecting spam
// exemplars and archiving under the tool's label.
package gmail

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/AustinCai/ai-spam-killer/internal/extract"
)

const (
	// MaxBodyChars caps the normalized body handed to the classifier.
	MaxBodyChars = 1000

	// See https://developers.google.com/gmail/api/v1/reference/quota
	quotaUnitsMessagesGet     = 5
	quotaUnitsPerMessagesList = 1
	quotaUnitsPerLabelsList   = 1
	quotaUnitsPerModify       = 5

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond

	// detailFetchConcurrency bounds parallel messages.get calls while a
	// listing page is processed.
	detailFetchConcurrency = 8
)

const (
	// LabelInbox is Gmail's system label for inbox messages.
	LabelInbox = "INBOX"
	// LabelSpam is Gmail's system label for the spam folder.
	LabelSpam = "SPAM"
)

// Message is one inbox message reduced to the fields the pipeline needs.
// The Body is normalized text, capped at MaxBodyChars.
type Message struct {
	ID      string
	Subject string
	Sender  string
	Body    string
	Labels  []string
}

// InInbox reports whether the message still carries the INBOX label.
func (m Message) InInbox() bool {
	for _, label := range m.Labels {
		if label == LabelInbox {
			return true
		}
	}
	return false
}

// Client provides access to the user's Gmail mailbox.
type Client struct {
	svc     *gmailapi.Service
	limiter *rate.Limiter
}

// New creates a Client from an OAuth2-authorized HTTP client.
func New(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create gmail service")
	}
	return &Client{
		svc:     svc,
		limiter: rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
	}, nil
}

// ListRecent fetches up to maxResults inbox messages from the scan window
// (the last windowDays days), in the order Gmail lists them. Messages that
// fail to fetch individually abort the listing; the caller treats that as a
// session-level failure.
func (c *Client) ListRecent(ctx context.Context, maxResults int64, windowDays int) ([]Message, error) {
	now := time.Now()
	start := now.AddDate(0, 0, -windowDays).Format("2006/01/02")
	end := now.AddDate(0, 0, 1).Format("2006/01/02")
	query := fmt.Sprintf("in:inbox after:%s before:%s", start, end)

	if err := c.limiter.WaitN(ctx, quotaUnitsPerMessagesList); err != nil {
		return nil, err
	}
	listResp, err := c.svc.Users.Messages.List("me").Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "unable to list inbox messages")
	}

	messages := make([]Message, len(listResp.Messages))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(detailFetchConcurrency)

	for i, ref := range listResp.Messages {
		i, id := i, ref.Id
		grp.Go(func() error {
			msg, err := c.getMessage(grpCtx, id)
			if err != nil {
				return err
			}
			messages[i] = msg
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return messages, nil
}

// getMessage fetches one full message and reduces it to a Message.
func (c *Client) getMessage(ctx context.Context, id string) (Message, error) {
	if err := c.limiter.WaitN(ctx, quotaUnitsMessagesGet); err != nil {
		return Message{}, err
	}
	full, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return Message{}, errors.Wrapf(err, "unable to get message %s", id)
	}

	body := extract.Text(full.Payload)
	if len(body) > MaxBodyChars {
		body = strings.ToValidUTF8(body[:MaxBodyChars], "")
	}

	return Message{
		ID:      id,
		Subject: headerValue(full.Payload, "Subject", "No Subject"),
		Sender:  headerValue(full.Payload, "From", "Unknown Sender"),
		Body:    body,
		Labels:  full.LabelIds,
	}, nil
}

// RawHTML re-fetches a message and returns its concatenated text/html leaf
// content, used for unsubscribe link mining. Fetch failures yield an empty
// string; mining then degrades to the plain-text body.
func (c *Client) RawHTML(ctx context.Context, id string) string {
	if err := c.limiter.WaitN(ctx, quotaUnitsMessagesGet); err != nil {
		return ""
	}
	full, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return ""
	}
	return extract.HTML(full.Payload)
}

// headerValue returns the named header from the payload, or fallback when
// it is absent.
func headerValue(payload *gmailapi.MessagePart, name, fallback string) string {
	if payload == nil {
		return fallback
	}
	for _, header := range payload.Headers {
		if header.Name == name {
			return header.Value
		}
	}
	return fallback
}
