// Package digitalocean fetches billing history from the DigitalOcean API.
package digitalocean

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"costalert/internal/billing"
	"costalert/internal/core"
)

const (
	// DefaultBaseURL is the public DigitalOcean API
	DefaultBaseURL = "https://api.digitalocean.com"

	// DefaultTimeout is the per-request HTTP timeout
	DefaultTimeout = 30 * time.Second

	// UserAgent identifies the client to the API
	UserAgent = "cost-alert/1.0"

	accountEndpoint        = "/v2/account"
	billingHistoryEndpoint = "/v2/customers/my/billing_history"

	defaultPerPage = 200
	maxPages       = 100
)

// RetryConfig configures provider-level retries for 429/5xx and transport errors.
type RetryConfig struct {
	MaxRetries int
	RetryWait  time.Duration
	MaxWait    time.Duration
}

// Options configures the client
type Options struct {
	// BaseURL overrides the API base URL
	BaseURL string

	// Token is the personal access token; required
	Token string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// RetryConfig enables retries when set
	RetryConfig *RetryConfig

	// PerPage is the billing history page size
	PerPage int

	// Logger receives request and retry logs
	Logger *slog.Logger
}

// Client is a billing.Source backed by the DigitalOcean API.
type Client struct {
	baseURL     string
	token       string
	perPage     int
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	logger      *slog.Logger
}

var _ billing.Source = (*Client)(nil)

type billingHistoryResponse struct {
	BillingHistory []billingHistoryEntry `json:"billing_history"`
	Links          struct {
		Pages struct {
			Next string `json:"next"`
		} `json:"pages"`
	} `json:"links"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

type billingHistoryEntry struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	InvoiceID   string `json:"invoice_id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Duration    string `json:"duration,omitempty"`
}

type errorResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// NewClient creates a client. A missing token is a configuration error.
func NewClient(opts *Options) (*Client, error) {
	if opts == nil {
		opts = &Options{}
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("%w: DigitalOcean API token not found, set DO_TOKEN", core.ErrConfiguration)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = httpClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		if opts.RetryConfig.RetryWait > 0 {
			retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		}
		if opts.RetryConfig.MaxWait > 0 {
			retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		}
		// Hand the last response back so its status can be classified
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
		retryClient.Logger = logger
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	return &Client{
		baseURL:     baseURL,
		token:       opts.Token,
		perPage:     perPage,
		httpClient:  httpClient,
		retryClient: retryClient,
		logger:      logger,
	}, nil
}

// VerifyToken checks the credential against the account endpoint.
func (c *Client) VerifyToken(ctx context.Context) error {
	if err := c.get(ctx, c.baseURL+accountEndpoint, nil); err != nil {
		return errors.Wrap(err, "verify token")
	}
	return nil
}

// FetchBillingItems verifies the token and returns the full billing history,
// following pagination links.
func (c *Client) FetchBillingItems(ctx context.Context) ([]core.BillingItem, error) {
	if err := c.VerifyToken(ctx); err != nil {
		return nil, err
	}

	next := fmt.Sprintf("%s%s?per_page=%d&page=1", c.baseURL, billingHistoryEndpoint, c.perPage)
	var items []core.BillingItem
	for page := 1; next != "" && page <= maxPages; page++ {
		var resp billingHistoryResponse
		if err := c.get(ctx, next, &resp); err != nil {
			return nil, errors.Wrapf(err, "fetch billing history page %d", page)
		}
		for _, e := range resp.BillingHistory {
			items = append(items, core.BillingItem{
				Date:        e.Date,
				Description: e.Description,
				Amount:      e.Amount,
				Duration:    e.Duration,
			})
		}
		next = resp.Links.Pages.Next
	}

	c.logger.DebugContext(ctx, "Fetched billing history", "items", len(items))
	return items, nil
}

func (c *Client) get(ctx context.Context, rawURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	start := time.Now()
	resp, err := c.doRequest(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	c.logger.DebugContext(ctx, "DigitalOcean response",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"size", len(body))

	if resp.StatusCode != http.StatusOK {
		return c.handleHTTPError(resp.StatusCode, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return errors.Wrap(err, "failed to parse response")
		}
	}
	return nil
}

// doRequest executes the HTTP request with retry if configured
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if c.retryClient != nil {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return c.retryClient.Do(retryReq)
	}
	return c.httpClient.Do(req)
}

// handleHTTPError maps a non-200 response to the billing error taxonomy
func (c *Client) handleHTTPError(statusCode int, body []byte) error {
	var errResp errorResponse
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Message
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	apiErr := &billing.APIError{
		StatusCode: statusCode,
		Code:       errResp.ID,
		Message:    msg,
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		apiErr.Err = billing.ErrUnauthorized
	case statusCode == http.StatusTooManyRequests:
		apiErr.Err = billing.ErrRateLimited
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		apiErr.Err = billing.ErrTimeout
	case statusCode >= 500:
		apiErr.Err = billing.ErrServerError
	}
	return apiErr
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, "request aborted")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", billing.ErrTimeout, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", billing.ErrConnection, urlErr.Err)
	}
	return fmt.Errorf("%w: %v", billing.ErrConnection, err)
}
