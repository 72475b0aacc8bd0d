// Package dispatch delivers rendered reports to Slack through an incoming webhook or the
// chat.postMessage API. Each Send makes exactly one attempt.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"pagepulse/internal/redact"
	"pagepulse/internal/render"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultAPIURL  = "https://slack.com/api/"
)

// ErrNoDestination is returned by New when neither a webhook nor a token is configured.
var ErrNoDestination = errors.New("no slack destination configured (set a webhook url, or a token and channel)")

type Message struct {
	Title  string
	Blocks []render.Block
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindRejected  Kind = "rejected"
	KindServer    Kind = "server"
	KindTransport Kind = "transport"
)

// DeliveryError describes a failed delivery attempt.
type DeliveryError struct {
	Kind       Kind
	StatusCode int
	Detail     string
	Err        error
}

func (e *DeliveryError) Error() string {
	var b strings.Builder
	b.WriteString("slack delivery failed: ")
	switch e.Kind {
	case KindTimeout:
		b.WriteString("request timed out")
	case KindRejected:
		b.WriteString("endpoint rejected the message")
	case KindServer:
		b.WriteString("transient server error")
	default:
		b.WriteString("transport error")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return redact.Text(b.String())
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Retryable reports whether a later attempt may succeed. Callers decide whether to retry.
func (e *DeliveryError) Retryable() bool {
	return e.Kind == KindServer || e.Kind == KindTimeout || e.StatusCode == http.StatusTooManyRequests
}

// Destination selects the delivery mechanism. A webhook wins when both are set.
type Destination struct {
	WebhookURL string
	Token      string
	Channel    string
}

func New(dest Destination, timeout time.Duration) (Dispatcher, error) {
	switch {
	case strings.TrimSpace(dest.WebhookURL) != "":
		return &WebhookClient{URL: strings.TrimSpace(dest.WebhookURL), Timeout: timeout}, nil
	case strings.TrimSpace(dest.Token) != "":
		if strings.TrimSpace(dest.Channel) == "" {
			return nil, fmt.Errorf("slack channel is required with a token")
		}
		return &APIClient{Token: strings.TrimSpace(dest.Token), Channel: strings.TrimSpace(dest.Channel), Timeout: timeout}, nil
	default:
		return nil, ErrNoDestination
	}
}

// WebhookClient posts to a Slack incoming webhook.
type WebhookClient struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (c *WebhookClient) Send(ctx context.Context, msg Message) error {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	p := BuildPayload(msg)
	err := slack.PostWebhookCustomHTTPContext(ctx, c.URL, httpClient(c.HTTPClient), &slack.WebhookMessage{
		Text:   p.Text,
		Blocks: &slack.Blocks{BlockSet: p.Blocks},
	})
	return classify(ctx, err)
}

// APIClient posts through chat.postMessage with a bot token.
type APIClient struct {
	Token   string
	Channel string
	// APIURL is the Web API base, ending in a slash. Empty means DefaultAPIURL.
	APIURL     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (c *APIClient) Send(ctx context.Context, msg Message) error {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	base := c.APIURL
	if base == "" {
		base = DefaultAPIURL
	}
	api := slack.New(c.Token, slack.OptionAPIURL(base), slack.OptionHTTPClient(httpClient(c.HTTPClient)))

	p := BuildPayload(msg)
	_, _, err := api.PostMessageContext(ctx, c.Channel,
		slack.MsgOptionText(p.Text, false),
		slack.MsgOptionBlocks(p.Blocks...),
	)
	return classify(ctx, err)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

// classify maps slack-go errors onto DeliveryError kinds.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var (
		limited  *slack.RateLimitedError
		status   slack.StatusCodeError
		rejected slack.SlackErrorResponse
	)
	switch {
	case errors.As(err, &limited):
		return &DeliveryError{
			Kind:       KindRejected,
			StatusCode: http.StatusTooManyRequests,
			Detail:     fmt.Sprintf("rate limited, retry after %s", limited.RetryAfter),
		}
	case errors.As(err, &status):
		kind := KindTransport
		switch {
		case status.Code >= 500:
			kind = KindServer
		case status.Code >= 400:
			kind = KindRejected
		}
		return &DeliveryError{Kind: kind, StatusCode: status.Code}
	case errors.As(err, &rejected):
		return &DeliveryError{Kind: KindRejected, Detail: rejected.Err}
	}
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &DeliveryError{Kind: KindTimeout, Err: err}
	}
	return &DeliveryError{Kind: KindTransport, Err: err}
}
