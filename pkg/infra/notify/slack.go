package notify

import (
	"context"
	"fmt"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// Slack posts case notifications to an incoming webhook
type Slack struct {
	webhookURL string
}

func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL}
}

// NotifyNewCase announces a freshly found case
func (s *Slack) NotifyNewCase(ctx context.Context, rec *model.CaseRecord) error {
	c := rec.Case
	fields := []slack.AttachmentField{
		{Title: "Marker", Value: c.Marker, Short: true},
		{Title: "Bad setting", Value: c.BadSetting.String(), Short: true},
		{Title: "Good settings", Value: fmt.Sprintf("%d", len(c.GoodSettings)), Short: true},
	}
	if c.Bisection != "" {
		link := c.BadSetting.Project.CommitLink(c.Bisection)
		fields = append(fields, slack.AttachmentField{
			Title: "Bisected to", Value: link, Short: false,
		})
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("New miscompilation candidate `%s`", rec.ID),
		Attachments: []slack.Attachment{{
			Color:  "#d00000",
			Fields: fields,
		}},
	}

	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack notification", goerr.V("case_id", rec.ID))
	}
	ctxlog.From(ctx).Debug("posted slack notification", "case_id", rec.ID)
	return nil
}

// Discard is a notifier that drops everything, used when no webhook
// is configured
type Discard struct{}

func (Discard) NotifyNewCase(ctx context.Context, rec *model.CaseRecord) error {
	return nil
}
