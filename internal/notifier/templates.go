// Package notifier builds the billing emails sent by the reconciliation
// sweeps.
package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	notifierdomain "github.com/shockvaluemedia/directfanz/internal/notifier/domain"
)

var renewalHTML = template.Must(template.New("renewal").Parse(`
<p>Hi {{.FanName}},</p>
<p>Your subscription to {{.TierName}} renewed for {{.Amount}} on {{.RenewedAt.Format "Jan 2, 2006"}}.</p>
<p>Your next billing date is {{.NextBillingAt.Format "Jan 2, 2006"}}.</p>
`))

var reminderHTML = template.Must(template.New("reminder").Parse(`
<p>Hi {{.FanName}},</p>
<p>Your subscription to {{.TierName}} will renew for {{.Amount}} on {{.RenewsAt.Format "Jan 2, 2006"}}.</p>
<p>No action is needed. To make changes, visit your subscription settings.</p>
`))

var cancellationHTML = template.Must(template.New("cancellation").Parse(`
<p>Hi {{.FanName}},</p>
<p>Your subscription to {{.TierName}} was canceled after repeated payment failures.</p>
<p>You can resubscribe at any time with an updated payment method.</p>
`))

var tierChangeHTML = template.Must(template.New("tierchange").Parse(`
<p>Hi {{.FanName}},</p>
<p>Your subscription moved from {{.FromTier}} to {{.ToTier}}.</p>
<p>Starting this period you will be billed {{.Amount}}.</p>
`))

type RenewalData struct {
	FanName       string
	TierName      string
	Amount        decimal.Decimal
	RenewedAt     time.Time
	NextBillingAt time.Time
}

func RenewalEmail(to string, data RenewalData) notifierdomain.Email {
	return notifierdomain.Email{
		To:      to,
		Subject: "Subscription Renewed",
		HTML:    render(renewalHTML, data),
		Text: fmt.Sprintf("Your subscription to %s renewed for %s. Next billing date: %s.",
			data.TierName, data.Amount, data.NextBillingAt.Format("Jan 2, 2006")),
	}
}

type ReminderData struct {
	FanName  string
	TierName string
	Amount   decimal.Decimal
	RenewsAt time.Time
}

func ReminderEmail(to string, data ReminderData) notifierdomain.Email {
	return notifierdomain.Email{
		To:      to,
		Subject: "Upcoming Subscription Renewal",
		HTML:    render(reminderHTML, data),
		Text: fmt.Sprintf("Your subscription to %s will renew for %s on %s.",
			data.TierName, data.Amount, data.RenewsAt.Format("Jan 2, 2006")),
	}
}

type CancellationData struct {
	FanName  string
	TierName string
}

func CancellationEmail(to string, data CancellationData) notifierdomain.Email {
	return notifierdomain.Email{
		To:      to,
		Subject: "Subscription Canceled",
		HTML:    render(cancellationHTML, data),
		Text: fmt.Sprintf("Your subscription to %s was canceled after repeated payment failures.",
			data.TierName),
	}
}

type TierChangeData struct {
	FanName  string
	FromTier string
	ToTier   string
	Amount   decimal.Decimal
}

func TierChangeEmail(to string, data TierChangeData) notifierdomain.Email {
	return notifierdomain.Email{
		To:      to,
		Subject: "Subscription Tier Updated",
		HTML:    render(tierChangeHTML, data),
		Text: fmt.Sprintf("Your subscription moved from %s to %s. New amount: %s.",
			data.FromTier, data.ToTier, data.Amount),
	}
}

func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}
