// Package instamojo wraps the hosted payment-request API the storefront
// redirects buyers to. The contract is deliberately narrow: one call, two
// outcomes (a hosted payment URL, or failure).
package instamojo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pisakart/pisakart-backend/pkg/config"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
	"github.com/pisakart/pisakart-backend/pkg/logger"
)

var (
	errAPIKeyRequired    = errors.New("instamojo api key is required")
	errAuthTokenRequired = errors.New("instamojo auth token is required")
)

// Client issues payment requests against the gateway.
type Client struct {
	baseURL    string
	apiKey     string
	authToken  string
	httpClient *http.Client
	logger     *logger.Logger
}

// PaymentRequest carries the fields the gateway needs to host a payment page.
type PaymentRequest struct {
	Purpose     string  `json:"purpose" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	BuyerName   string  `json:"buyer_name" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       string  `json:"phone" validate:"required"`
	RedirectURL string  `json:"redirect_url" validate:"required,url"`
}

// NewClient validates the credentials and returns a gateway client.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	authToken := strings.TrimSpace(cfg.AuthToken)
	if authToken == "" {
		return nil, errAuthTokenRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     apiKey,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
	}

	if logg != nil {
		logg.Info(ctx, "payment gateway client initialized")
	}
	return c, nil
}

// CreatePayment registers a payment request and returns the hosted payment
// URL. Every non-success branch maps to a dependency error; no gateway
// internals leak to the caller.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (string, error) {
	form := url.Values{}
	form.Set("purpose", req.Purpose)
	form.Set("amount", strconv.FormatFloat(req.Amount, 'f', -1, 64))
	form.Set("buyer_name", req.BuyerName)
	form.Set("email", req.Email)
	form.Set("phone", req.Phone)
	form.Set("redirect_url", req.RedirectURL)
	form.Set("send_email", "True")
	form.Set("send_sms", "True")
	form.Set("allow_repeated_payments", "False")

	endpoint := c.baseURL + "/payment-requests/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building payment request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Auth-Token", c.authToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment creation failed (status %d)", resp.StatusCode))
	}

	var payload struct {
		PaymentRequest struct {
			LongURL string `json:"longurl"`
		} `json:"payment_request"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed gateway response")
	}
	if payload.PaymentRequest.LongURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payment URL not found in gateway response")
	}
	return payload.PaymentRequest.LongURL, nil
}
