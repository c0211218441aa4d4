package tripletex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DateFormat is the calendar date layout the Tripletex API expects, yyyy-MM-dd.
const DateFormat = "2006-01-02"

const (
	createSessionPath = "/token/session/:create"
	whoAmIPath        = "/token/session/>whoAmI"

	// maxErrorBody caps how much of a failed response is kept for the error message
	maxErrorBody = 4 << 10
)

// HTTPClient is satisfied by *http.Client and lets tests swap the transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Tripletex token session endpoints.
type Client struct {
	baseURL    string
	httpClient HTTPClient
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c HTTPClient) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient returns a Client rooted at baseURL, for example https://tripletex.no/v2.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid tripletex base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid tripletex base url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateSession issues a session token that stays valid until expirationDate.
func (c *Client) CreateSession(ctx context.Context, consumerToken, employeeToken string, expirationDate time.Time) (string, error) {
	query := url.Values{}
	query.Set("consumerToken", consumerToken)
	query.Set("employeeToken", employeeToken)
	query.Set("expirationDate", expirationDate.Format(DateFormat))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+createSessionPath+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("tripletex: building session request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	token := gjson.GetBytes(body, "value.token")
	if !token.Exists() || token.String() == "" {
		return "", errors.New("tripletex: session response has no value.token")
	}
	return token.String(), nil
}

// Identity is the subject a session token authenticates as.
type Identity struct {
	EmployeeID int64
	CompanyID  int64
}

// WhoAmI authenticates with sessionToken and returns who it belongs to.
// It fails when the token is unknown or expired.
func (c *Client) WhoAmI(ctx context.Context, sessionToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+whoAmIPath, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("tripletex: building whoAmI request: %w", err)
	}
	// session tokens go in the basic auth password with an empty user
	req.SetBasicAuth("", sessionToken)

	body, err := c.do(req)
	if err != nil {
		return Identity{}, err
	}

	value := gjson.GetBytes(body, "value")
	return Identity{
		EmployeeID: value.Get("employeeId").Int(),
		CompanyID:  value.Get("companyId").Int(),
	}, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tripletex: %s %s: %w", req.Method, req.URL.Path, redactURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(req, resp, raw)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tripletex: reading %s response: %w", req.URL.Path, err)
	}
	return body, nil
}

// redactURL drops the query from a transport error's URL.
// The session endpoint takes the long-lived tokens as query parameters.
func redactURL(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		u.RawQuery = ""
		u.User = nil
		redacted.URL = u.String()
	} else {
		redacted.URL = "[redacted]"
	}
	return &redacted
}

// APIError is a non-2xx response from Tripletex.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("tripletex: %s %s returned %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request id " + e.RequestID + ")"
	}
	return msg
}

func newAPIError(req *http.Request, resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
	}
	if gjson.ValidBytes(body) {
		apiErr.Message = gjson.GetBytes(body, "message").String()
		apiErr.RequestID = gjson.GetBytes(body, "requestId").String()
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
