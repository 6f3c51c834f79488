package gmail

import (
	"context"
	"log"

	"github.com/pkg/errors"
	gmailapi "google.golang.org/api/gmail/v1"
)

// ArchiveLabelName is the label applied to every message this tool archives,
// so mistakes can be found and undone from the Gmail UI.
const ArchiveLabelName = "AI Archived"

// EnsureArchiveLabel finds the archive label or creates it, returning its id.
func (c *Client) EnsureArchiveLabel(ctx context.Context) (string, error) {
	if err := c.limiter.WaitN(ctx, quotaUnitsPerLabelsList); err != nil {
		return "", err
	}
	labels, err := c.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", errors.Wrap(err, "unable to list labels")
	}

	for _, label := range labels.Labels {
		if label.Name == ArchiveLabelName {
			return label.Id, nil
		}
	}

	created, err := c.svc.Users.Labels.Create("me", &gmailapi.Label{
		Name:                  ArchiveLabelName,
		MessageListVisibility: "show",
		LabelListVisibility:   "labelShow",
	}).Context(ctx).Do()
	if err != nil {
		return "", errors.Wrapf(err, "unable to create label %q", ArchiveLabelName)
	}

	log.Printf("[Gmail] Created %q label with ID %s", ArchiveLabelName, created.Id)
	return created.Id, nil
}

// Archive removes the message from the inbox and tags it with the archive
// label when one is available.
func (c *Client) Archive(ctx context.Context, messageID, archiveLabelID string) error {
	if err := c.limiter.WaitN(ctx, quotaUnitsPerModify); err != nil {
		return err
	}

	modify := &gmailapi.ModifyMessageRequest{
		RemoveLabelIds: []string{LabelInbox},
	}
	if archiveLabelID != "" {
		modify.AddLabelIds = []string{archiveLabelID}
	}

	if _, err := c.svc.Users.Messages.Modify("me", messageID, modify).Context(ctx).Do(); err != nil {
		return errors.Wrapf(err, "unable to archive message %s", messageID)
	}
	return nil
}
