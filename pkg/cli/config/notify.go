package config

import (
	"github.com/ccdrover/ccdrover/pkg/domain/interfaces"
	"github.com/ccdrover/ccdrover/pkg/infra/notify"
	"github.com/urfave/cli/v3"
)

// Notify holds notification configuration
type Notify struct {
	SlackWebhookURL string
}

// Flags returns CLI flags for notification configuration
func (c *Notify) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook for new case notifications",
			Destination: &c.SlackWebhookURL,
			Sources:     cli.EnvVars("CCDROVER_SLACK_WEBHOOK_URL"),
		},
	}
}

// Notifier builds the configured notifier, a no-op when no webhook
// is set
func (c *Notify) Notifier() interfaces.Notifier {
	if c.SlackWebhookURL == "" {
		return notify.Discard{}
	}
	return notify.NewSlack(c.SlackWebhookURL)
}
