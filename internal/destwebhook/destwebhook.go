package destwebhook

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/psanford/emissary/config"
	"github.com/psanford/emissary/internal/destination"
)

type Loader struct {
}

func NewLoader() *Loader {
	return &Loader{}
}

var typeName = "webhook"

func (l *Loader) Type() string {
	return typeName
}

func (l *Loader) Load(c *config.Channel) (destination.Destination, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("(webhook) channel name must be set")
	}
	if c.Webhook == "" {
		return nil, fmt.Errorf("(webhook) webhook must be set for %q", c.Name)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	d := DestWebhook{
		id:         c.Name,
		webhookURL: c.Webhook,
		client:     resty.New().SetTimeout(timeout),
	}
	return &d, nil
}

// TransportError is returned when the request could not be completed at all.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("post %s: %v", filterURL(e.URL), e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the webhook answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned %s", e.Status)
	}
	return fmt.Sprintf("webhook returned %s: %s", e.Status, e.Body)
}

type DestWebhook struct {
	id         string
	webhookURL string
	client     *resty.Client
}

func (d *DestWebhook) ID() string {
	return d.id
}

func (d *DestWebhook) Type() string {
	return typeName
}

func (d *DestWebhook) Timeout() time.Duration {
	return d.client.GetClient().Timeout
}

func (d *DestWebhook) Send(body interface{}) error {
	resp, err := d.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(d.webhookURL)
	if err != nil {
		return &TransportError{URL: d.webhookURL, Err: err}
	}

	if !resp.IsSuccess() {
		return &StatusError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       truncate(strings.TrimSpace(resp.String()), 200),
		}
	}

	return nil
}

func (d *DestWebhook) String() string {
	return fmt.Sprintf("{id: %s webhookURL: %s}", d.id, filterURL(d.webhookURL))
}

// filterURL hides the trailing token of Slack style webhook URLs.
func filterURL(u string) string {
	paths := strings.Split(u, "/")
	if len(paths) > 4 {
		paths[len(paths)-1] = "**FILTERED**"
	}
	return strings.Join(paths, "/")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
