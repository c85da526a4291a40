// Package notification delivers plan-change emails to an organization's
// billing contact over SMTP.
package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"tollgate/internal/domain/billing"
	"tollgate/internal/domain/organization"
	"tollgate/internal/domain/plan"
	sharedConfig "tollgate/internal/shared/config"
	"tollgate/internal/shared/logger"
)

type EmailNotifier struct {
	config sharedConfig.EmailConfig
	dialer *gomail.Dialer
	logger logger.Interface
}

func NewEmailNotifier(config sharedConfig.EmailConfig, logger logger.Interface) billing.NotificationSink {
	dialer := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword)

	return &EmailNotifier{
		config: config,
		dialer: dialer,
		logger: logger,
	}
}

// PlanChanged mails the organization's billing contact about a completed or
// scheduled plan change. Organizations without a billing email are skipped.
func (n *EmailNotifier) PlanChanged(ctx context.Context, org *organization.Organization, oldPlan, newPlan *plan.Plan) error {
	to := org.BillingEmail()
	if to == "" {
		n.logger.Debugw("organization has no billing email, skipping notification",
			"organization_id", org.ID(),
		)
		return nil
	}

	subject := fmt.Sprintf("Your %s plan has changed", n.config.FromName)
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Plan Change</h2>
			<p>The plan for <strong>%s</strong> changed from <strong>%s</strong> to <strong>%s</strong>.</p>
			<p>Your next invoice will reflect the new plan.</p>
			<p>If you didn't request this change, please contact support.</p>
		</body>
		</html>
	`, org.Name(), planName(oldPlan), planName(newPlan))

	plainBody := fmt.Sprintf(`
Plan Change

The plan for %s changed from %s to %s.

Your next invoice will reflect the new plan.

If you didn't request this change, please contact support.
	`, org.Name(), planName(oldPlan), planName(newPlan))

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(n.config.FromAddress, n.config.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send plan change email: %w", err)
	}

	n.logger.Infow("plan change notification sent",
		"organization_id", org.ID(),
		"to", to,
	)
	return nil
}

func planName(p *plan.Plan) string {
	if p == nil {
		return "no plan"
	}
	return p.Name()
}
