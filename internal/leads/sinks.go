package leads

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	commonaws "menu-scorecard/internal/common/aws"
	"menu-scorecard/internal/common/config"
	commonhttp "menu-scorecard/internal/common/http"
	"menu-scorecard/internal/common/zoho"
)

// WebhookSink posts the payload as JSON. Any 2xx counts as success and the
// response body is ignored.
type WebhookSink struct {
	url    string
	client *commonhttp.Client
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{url: url, client: commonhttp.NewClient(timeout)}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Deliver(ctx context.Context, p Payload) error {
	_, err := w.client.PostJSON(ctx, w.url, nil, p)
	return err
}

type CRMClient interface {
	UpsertLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

// CRMSink records the lead in Zoho CRM, updating an existing lead with the same email.
type CRMSink struct {
	crm CRMClient
}

func NewCRMSink(crm CRMClient) *CRMSink {
	return &CRMSink{crm: crm}
}

func (c *CRMSink) Name() string { return "zoho" }

func (c *CRMSink) Deliver(ctx context.Context, p Payload) error {
	first, last := splitName(p.FullName)
	_, err := c.crm.UpsertLead(ctx, &zoho.Lead{
		Email:       p.Email,
		FirstName:   first,
		LastName:    last,
		Phone:       p.Phone,
		Company:     p.Company,
		Industry:    p.BusinessType,
		Revenue:     p.Revenue,
		Description: fmt.Sprintf("Menu score %d/100. %s", p.OverallScore, p.ResultsSummary),
		Source:      "Menu Scorecard",
	})
	return err
}

// splitName puts everything after the first word in the last name. Zoho
// requires a last name, so a single word is used as the last name.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

type EmailSender interface {
	SendText(ctx context.Context, from, to, subject, body string) (string, error)
}

// EmailSink notifies the sales inbox through SES.
type EmailSink struct {
	sender   EmailSender
	from, to string
}

func NewEmailSink(sender EmailSender, from, to string) *EmailSink {
	return &EmailSink{sender: sender, from: from, to: to}
}

func (e *EmailSink) Name() string { return "ses" }

func (e *EmailSink) Deliver(ctx context.Context, p Payload) error {
	_, err := e.sender.SendText(ctx, e.from, e.to, leadSubject(p), leadBody(p))
	return err
}

type TopicPublisher interface {
	PublishToTopic(ctx context.Context, topicARN, subject, message string) (string, error)
}

// TopicSink publishes the lead to an SNS topic.
type TopicSink struct {
	publisher TopicPublisher
	topicARN  string
}

func NewTopicSink(publisher TopicPublisher, topicARN string) *TopicSink {
	return &TopicSink{publisher: publisher, topicARN: topicARN}
}

func (t *TopicSink) Name() string { return "sns" }

func (t *TopicSink) Deliver(ctx context.Context, p Payload) error {
	_, err := t.publisher.PublishToTopic(ctx, t.topicARN, leadSubject(p), leadBody(p))
	return err
}

func leadSubject(p Payload) string {
	subject := fmt.Sprintf("New menu scorecard lead: %s (%d/100)", p.Company, p.OverallScore)
	return truncateUTF8(subject, maxSubjectBytes)
}

// SNS subjects are limited to 100 bytes of valid UTF-8.
const maxSubjectBytes = 100

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for n < len(s) {
		_, size := utf8.DecodeRuneInString(s[n:])
		if n+size > limit {
			break
		}
		n += size
	}
	return s[:n]
}

func leadBody(p Payload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", p.FullName)
	fmt.Fprintf(&sb, "Email: %s\n", p.Email)
	fmt.Fprintf(&sb, "Phone: %s\n", p.Phone)
	fmt.Fprintf(&sb, "Company: %s\n", p.Company)
	fmt.Fprintf(&sb, "Business type: %s\n", valueOr(p.BusinessType, "not provided"))
	fmt.Fprintf(&sb, "Revenue: %s\n", valueOr(p.Revenue, "not provided"))
	fmt.Fprintf(&sb, "Overall score: %d/100\n", p.OverallScore)
	fmt.Fprintf(&sb, "Summary: %s\n", p.ResultsSummary)
	fmt.Fprintf(&sb, "Submitted: %s\n", p.Timestamp)
	return sb.String()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// NewSinksFromConfig builds the webhook sink and every enabled optional sink.
func NewSinksFromConfig(ctx context.Context, cfg config.LeadsConfig) (Sink, []Sink, error) {
	primary := NewWebhookSink(cfg.Webhook.URL, config.GetDuration(cfg.Webhook.Timeout))

	var secondary []Sink
	if cfg.Zoho.Enabled {
		secondary = append(secondary, NewCRMSink(zoho.NewCRMClient(cfg.Zoho.BaseURL, cfg.Zoho.AuthToken)))
	}
	if cfg.AWS.SES.Enabled {
		ses, err := commonaws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, nil, fmt.Errorf("ses client: %w", err)
		}
		secondary = append(secondary, NewEmailSink(ses, cfg.AWS.SES.FromEmail, cfg.AWS.SES.ToEmail))
	}
	if cfg.AWS.SNS.Enabled {
		sns, err := commonaws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, nil, fmt.Errorf("sns client: %w", err)
		}
		secondary = append(secondary, NewTopicSink(sns, cfg.AWS.SNS.TopicARN))
	}

	return primary, secondary, nil
}
