// Package twilio is a small client for Twilio's Programmable Messaging API:
// sending messages, alone or in concurrent batches, and listing the message log.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"twilioasync/internal/observability"
)

const (
	DefaultHost     = "https://api.twilio.com"
	APIVersion      = "2010-04-01"
	DefaultPageSize = 100

	// MaxPageSize is enforced by Twilio; larger values are capped server side.
	MaxPageSize = 1000
)

// Client talks to one Twilio account. Build it with New and release it with
// Close; every method returns ErrClosed afterwards. A Client is safe for
// concurrent use.
type Client struct {
	accountSID string
	authToken  string

	host    *url.URL
	baseURL string

	http     *http.Client
	ownsHTTP bool
	config   ConfigSource
	log      *slog.Logger

	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	batchLimit int

	closed atomic.Bool
}

type options struct {
	timeout    time.Duration
	config     ConfigSource
	host       string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	batchLimit int
}

type Option func(*options)

// WithTimeout bounds every individual HTTP request, batch items included.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithConfigSource replaces the environment as the fallback for credentials
// and the messaging service SID.
func WithConfigSource(src ConfigSource) Option {
	return func(o *options) { o.config = src }
}

// WithBaseURL points the client at another host, e.g. a mock provider.
func WithBaseURL(host string) Option {
	return func(o *options) { o.host = host }
}

// WithHTTPClient uses hc for transport. The client does not close its idle
// connections on Close.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLimiter makes every request wait on l first.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithBreaker runs every request through cb. See NewCircuitBreaker.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(o *options) { o.breaker = cb }
}

// WithBatchConcurrency caps in-flight sends per SendMessageBatch call.
// Zero means no cap.
func WithBatchConcurrency(n int) Option {
	return func(o *options) { o.batchLimit = n }
}

// New resolves credentials and opens a client. Empty arguments fall back to
// the ConfigSource (the process environment unless WithConfigSource is given).
func New(accountSID, authToken string, opts ...Option) (*Client, error) {
	o := options{config: EnvSource{}, host: DefaultHost}
	for _, opt := range opts {
		opt(&o)
	}

	if accountSID == "" || authToken == "" {
		s, err := o.config.Settings()
		if err != nil {
			return nil, &ConfigError{Field: "credentials", Reason: err.Error()}
		}
		if accountSID == "" {
			accountSID = s.AccountSID
		}
		if authToken == "" {
			authToken = s.AuthToken
		}
	}
	if accountSID == "" {
		return nil, &ConfigError{Field: "account_sid"}
	}
	if authToken == "" {
		return nil, &ConfigError{Field: "auth_token"}
	}

	host, err := url.Parse(strings.TrimRight(o.host, "/"))
	if err != nil || host.Scheme == "" || host.Host == "" {
		return nil, &ConfigError{Field: "base_url", Reason: fmt.Sprintf("invalid url %q", o.host)}
	}

	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		host:       host,
		baseURL:    host.String() + "/" + APIVersion + "/Accounts/" + url.PathEscape(accountSID) + "/",
		config:     o.config,
		log:        o.logger,
		limiter:    o.limiter,
		breaker:    o.breaker,
		batchLimit: o.batchLimit,
	}
	if c.log == nil {
		c.log = slog.Default()
	}

	switch {
	case o.httpClient == nil:
		c.http = &http.Client{Timeout: o.timeout}
		c.ownsHTTP = true
	case o.timeout > 0:
		hc := *o.httpClient
		hc.Timeout = o.timeout
		c.http = &hc
	default:
		c.http = o.httpClient
	}
	return c, nil
}

func (c *Client) AccountSID() string { return c.accountSID }
func (c *Client) AuthToken() string  { return c.authToken }

// BaseURL is the account-scoped prefix every request is issued under.
func (c *Client) BaseURL() string { return c.baseURL }

// Close releases the client's connections. Calling it again is a no-op.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.ownsHTTP {
		c.http.CloseIdleConnections()
	}
	return nil
}

// ListMessageLogs fetches the first page of the message log. pageSize <= 0
// means DefaultPageSize; values above MaxPageSize are passed through.
func (c *Client) ListMessageLogs(ctx context.Context, pageSize int) (MessageLogs, error) {
	if c.closed.Load() {
		return MessageLogs{}, ErrClosed
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return c.getMessageLogs(ctx, c.baseURL+"Messages.json?PageSize="+strconv.Itoa(pageSize))
}

// NextMessageLogs follows page.NextPageURI. It returns ErrNoMorePages on the
// last page.
func (c *Client) NextMessageLogs(ctx context.Context, page MessageLogs) (MessageLogs, error) {
	if c.closed.Load() {
		return MessageLogs{}, ErrClosed
	}
	if page.NextPageURI == nil || *page.NextPageURI == "" {
		return MessageLogs{}, ErrNoMorePages
	}
	ref, err := url.Parse(*page.NextPageURI)
	if err != nil {
		return MessageLogs{}, &ValidationError{Field: "next_page_uri", Err: err}
	}
	next := c.host.ResolveReference(ref)
	if next.Host != c.host.Host {
		return MessageLogs{}, &ValidationError{Field: "next_page_uri", Err: errors.New("points outside the provider host")}
	}
	return c.getMessageLogs(ctx, next.String())
}

func (c *Client) getMessageLogs(ctx context.Context, endpoint string) (MessageLogs, error) {
	b, err := c.do(ctx, "list_messages", http.MethodGet, endpoint, nil)
	if err != nil {
		return MessageLogs{}, err
	}
	var out MessageLogs
	if err := json.Unmarshal(b, &out); err != nil {
		return MessageLogs{}, decodeError(err)
	}
	return out, nil
}

// SendMessage creates one message. The messaging service SID falls back to
// the ConfigSource; with neither it nor From set, SendMessage fails with a
// ConfigError and makes no request.
func (c *Client) SendMessage(ctx context.Context, msg MessageSend) (Message, error) {
	if c.closed.Load() {
		return Message{}, ErrClosed
	}
	form, err := c.sendForm(msg)
	if err != nil {
		return Message{}, err
	}

	b, err := c.do(ctx, "send_message", http.MethodPost, c.baseURL+"Messages.json", form)
	if err != nil {
		return Message{}, err
	}
	var out Message
	if err := json.Unmarshal(b, &out); err != nil {
		return Message{}, decodeError(err)
	}
	return out, nil
}

func (c *Client) sendForm(msg MessageSend) (url.Values, error) {
	sid := msg.MessagingServiceSID
	if sid == "" {
		s, err := c.config.Settings()
		if err != nil {
			return nil, &ConfigError{Field: "messaging_service_sid", Reason: err.Error()}
		}
		sid = s.MessagingServiceSID
	}
	if sid == "" && msg.From == "" {
		return nil, &ConfigError{Field: "from", Reason: "a messaging service sid or from number is required"}
	}

	form := url.Values{}
	form.Set("Body", msg.Body)
	form.Set("To", msg.To)
	if sid != "" {
		form.Set("MessagingServiceSid", sid)
	}
	if msg.From != "" {
		form.Set("From", msg.From)
	}
	return form, nil
}

// do issues one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, endpoint string, form url.Values) ([]byte, error) {
	return c.guarded(ctx, func() ([]byte, error) {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, fmt.Errorf("twilio %s: build request: %w", op, err)
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		req.Header.Set("Accept", "application/json")
		req.SetBasicAuth(c.accountSID, c.authToken)
		return c.roundTrip(op, req)
	})
}

func (c *Client) roundTrip(op string, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.TwilioRequests.WithLabelValues(op, "error", "0").Inc()
		c.log.Warn("twilio request failed", "operation", op, "method", req.Method, "path", req.URL.Path, "err", err)
		return nil, fmt.Errorf("twilio %s: %w", op, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	observability.TwilioLatency.WithLabelValues(op).Observe(elapsed.Seconds())
	status := strconv.Itoa(resp.StatusCode)
	if err != nil {
		observability.TwilioRequests.WithLabelValues(op, "error", status).Inc()
		return nil, fmt.Errorf("twilio %s: read body: %w", op, err)
	}

	c.log.Debug("twilio request",
		"operation", op,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", elapsed,
	)

	// Twilio returns 201 for created; treat 2xx as success
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.TwilioRequests.WithLabelValues(op, "http_error", status).Inc()
		herr := newHTTPError(resp, b)
		c.log.Warn("twilio request rejected",
			"operation", op,
			"status", resp.StatusCode,
			"code", herr.Code,
			"request_id", herr.RequestID,
		)
		return nil, herr
	}
	observability.TwilioRequests.WithLabelValues(op, "ok", status).Inc()
	return b, nil
}

type errorBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	e := &HTTPError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("Twilio-Request-Id"),
		Body:       body,
	}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		e.Code = eb.Code
		e.Message = eb.Message
		e.MoreInfo = eb.MoreInfo
	}
	return e
}

// decodeError keeps ValidationErrors from UnmarshalJSON as they are and wraps
// syntax errors in one.
func decodeError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return &ValidationError{Err: err}
}
