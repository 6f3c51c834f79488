package gmail

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/AustinCai/ai-spam-killer/internal/ai"
	"github.com/AustinCai/ai-spam-killer/internal/extract"
)

// CollectSpamExamples samples up to max messages from the spam folder to
// seed the session prompt template. A message that fails to fetch is
// skipped; only a failed listing is an error.
func (c *Client) CollectSpamExamples(ctx context.Context, max int64) ([]ai.SpamExample, error) {
	if err := c.limiter.WaitN(ctx, quotaUnitsPerMessagesList); err != nil {
		return nil, err
	}
	listResp, err := c.svc.Users.Messages.List("me").LabelIds(LabelSpam).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "unable to list spam folder")
	}

	var examples []ai.SpamExample
	for _, ref := range listResp.Messages {
		if err := c.limiter.WaitN(ctx, quotaUnitsMessagesGet); err != nil {
			return examples, err
		}
		full, err := c.svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			log.Printf("[Gmail] skipping spam example %s: %v", ref.Id, err)
			continue
		}

		examples = append(examples, ai.SpamExample{
			Subject: headerValue(full.Payload, "Subject", "No Subject"),
			Sender:  headerValue(full.Payload, "From", "Unknown Sender"),
			Body:    extract.Text(full.Payload),
		})
	}

	log.Printf("[Gmail] Collected %d spam examples for improved detection", len(examples))
	return examples, nil
}
