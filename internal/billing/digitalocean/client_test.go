package digitalocean

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costalert/internal/billing"
	"costalert/internal/core"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Options{
		BaseURL: server.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return server, client
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(&Options{Token: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = NewClient(nil)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(&Options{Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, defaultPerPage, client.perPage)
	assert.Nil(t, client.retryClient)
}

func TestFetchBillingItems_Paginates(t *testing.T) {
	var server *httptest.Server
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case accountEndpoint:
			fmt.Fprint(w, `{"account":{"status":"active"}}`)
		case billingHistoryEndpoint:
			assert.Equal(t, "200", r.URL.Query().Get("per_page"))
			if r.URL.Query().Get("page") == "1" {
				fmt.Fprintf(w, `{
					"billing_history": [
						{"description": "Droplet usage", "amount": "3.00", "date": "2026-10-16T00:00:00Z", "type": "Invoice"}
					],
					"links": {"pages": {"next": "%s%s?per_page=200&page=2"}}
				}`, server.URL, billingHistoryEndpoint)
				return
			}
			fmt.Fprint(w, `{
				"billing_history": [
					{"description": "Volume", "amount": "4.50", "date": "2026-10-16T00:00:00Z", "type": "Invoice"},
					{"description": "Payment", "amount": "-10.00", "date": "2026-10-15T00:00:00Z", "type": "Payment"}
				],
				"links": {}
			}`)
		default:
			http.NotFound(w, r)
		}
	})

	items, err := client.FetchBillingItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Droplet usage", items[0].Description)
	assert.Equal(t, "3.00", items[0].Amount)
	assert.Equal(t, "2026-10-16T00:00:00Z", items[0].Date)
	assert.Equal(t, "-10.00", items[2].Amount)

	dc := core.Aggregate(items, core.NewDate(2026, 10, 16))
	assert.Equal(t, int64(750), dc.Total.Cents)
}

func TestFetchBillingItems_Unauthorized(t *testing.T) {
	var billingCalls int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == billingHistoryEndpoint {
			atomic.AddInt32(&billingCalls, 1)
		}
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"id":"unauthorized","message":"Unable to authenticate you"}`)
	})

	_, err := client.FetchBillingItems(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, billing.ErrUnauthorized))
	assert.True(t, billing.IsAuthError(err))
	assert.Contains(t, err.Error(), "Unable to authenticate you")
	assert.Zero(t, atomic.LoadInt32(&billingCalls))

	var apiErr *billing.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Code)
}

func TestHandleHTTPError_StatusMapping(t *testing.T) {
	client, err := NewClient(&Options{Token: "tok"})
	require.NoError(t, err)

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, billing.ErrUnauthorized},
		{http.StatusForbidden, billing.ErrUnauthorized},
		{http.StatusTooManyRequests, billing.ErrRateLimited},
		{http.StatusRequestTimeout, billing.ErrTimeout},
		{http.StatusGatewayTimeout, billing.ErrTimeout},
		{http.StatusInternalServerError, billing.ErrServerError},
		{http.StatusBadGateway, billing.ErrServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := client.handleHTTPError(tt.status, []byte(`{}`))
			assert.True(t, errors.Is(err, tt.want), "status %d: %v", tt.status, err)
		})
	}

	err = client.handleHTTPError(http.StatusNotFound, nil)
	var apiErr *billing.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Not Found", apiErr.Message)
	assert.Nil(t, apiErr.Err)
}

func TestFetchBillingItems_RetriesServerErrors(t *testing.T) {
	var accountCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == accountEndpoint {
			if atomic.AddInt32(&accountCalls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{}`)
			return
		}
		fmt.Fprint(w, `{"billing_history": [], "links": {}}`)
	}))
	defer server.Close()

	client, err := NewClient(&Options{
		BaseURL: server.URL,
		Token:   "tok",
		RetryConfig: &RetryConfig{
			MaxRetries: 3,
			RetryWait:  time.Millisecond,
			MaxWait:    2 * time.Millisecond,
		},
	})
	require.NoError(t, err)

	items, err := client.FetchBillingItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(3), atomic.LoadInt32(&accountCalls))
}

func TestFetchBillingItems_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(&Options{
		BaseURL:     server.URL,
		Token:       "tok",
		RetryConfig: &RetryConfig{MaxRetries: 1, RetryWait: time.Millisecond, MaxWait: time.Millisecond},
	})
	require.NoError(t, err)

	_, err = client.FetchBillingItems(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, billing.ErrRateLimited))
	assert.True(t, billing.IsRetryable(err))
}

func TestFetchBillingItems_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(&Options{BaseURL: url, Token: "tok"})
	require.NoError(t, err)

	_, err = client.FetchBillingItems(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, billing.ErrConnection))
}

func TestFetchBillingItems_InvalidJSON(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == accountEndpoint {
			fmt.Fprint(w, `{}`)
			return
		}
		fmt.Fprint(w, `not json`)
	})

	_, err := client.FetchBillingItems(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}
