package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/eshop/internal/domain/errors"
	"github.com/polkiloo/eshop/internal/domain/model"
)

const currencyCode = "USD"

// Gateway exposes the payment provider operations needed by checkout. A
// failed Capture must never be read as "no money moved".
type Gateway interface {
	CreateOrder(ctx context.Context, order *model.Order, payerName string) (*model.PaymentSession, error)
	Capture(ctx context.Context, sessionID string) (model.PaymentSessionStatus, error)
	GetStatus(ctx context.Context, sessionID string) (model.PaymentSessionStatus, error)
}

// HTTPClient implements Gateway via the PayPal Orders v2 REST API.
type HTTPClient struct {
	baseURL      *url.URL
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewHTTPClient creates a PayPal client with default timeout.
func NewHTTPClient(baseURL, clientID, clientSecret string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse paypal url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("paypal url must be absolute")
	}
	return &HTTPClient{
		baseURL:      parsed,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type amountBreakdown struct {
	ItemTotal money `json:"item_total"`
	Shipping  money `json:"shipping"`
	TaxTotal  money `json:"tax_total"`
}

type amountWithBreakdown struct {
	CurrencyCode string          `json:"currency_code"`
	Value        string          `json:"value"`
	Breakdown    amountBreakdown `json:"breakdown"`
}

type item struct {
	Name       string `json:"name"`
	UnitAmount money  `json:"unit_amount"`
	Quantity   string `json:"quantity"`
	SKU        string `json:"sku,omitempty"`
	Category   string `json:"category,omitempty"`
}

type shippingName struct {
	FullName string `json:"full_name"`
}

type shippingDetail struct {
	Name    shippingName `json:"name"`
	Address struct {
		AddressLine1 string `json:"address_line_1"`
		CountryCode  string `json:"country_code"`
	} `json:"address"`
}

type purchaseUnit struct {
	ReferenceID string              `json:"reference_id"`
	Description string              `json:"description"`
	Amount      amountWithBreakdown `json:"amount"`
	Items       []item              `json:"items"`
	Shipping    shippingDetail      `json:"shipping"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// CreateOrder opens a remote payment session for the given order and returns
// its id plus the approval redirect URL.
func (c *HTTPClient) CreateOrder(ctx context.Context, order *model.Order, payerName string) (*model.PaymentSession, error) {
	body := c.buildCreateOrderRequest(order, payerName)

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &resp); err != nil {
		return nil, &domainErrors.PaymentError{Op: "create", Cause: err}
	}

	approvalURL := ""
	for _, l := range resp.Links {
		if l.Rel == "approve" {
			approvalURL = l.Href
			break
		}
	}
	if approvalURL == "" {
		c.logger.Warn("no approval url in paypal order", slog.String("paypal_order_id", resp.ID))
		return nil, &domainErrors.PaymentError{Op: "create", Cause: fmt.Errorf("no approval url in response")}
	}

	c.logger.Info("paypal order created", slog.String("paypal_order_id", resp.ID))
	return &model.PaymentSession{ID: resp.ID, ApprovalURL: approvalURL}, nil
}

// Capture finalizes payment for a previously approved session.
func (c *HTTPClient) Capture(ctx context.Context, sessionID string) (model.PaymentSessionStatus, error) {
	var resp orderResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(sessionID))
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return "", &domainErrors.PaymentError{Op: "capture", Cause: err}
	}
	c.logger.Info("paypal order captured", slog.String("paypal_order_id", sessionID))
	return model.PaymentSessionStatus(resp.Status), nil
}

// GetStatus queries the remote session status.
func (c *HTTPClient) GetStatus(ctx context.Context, sessionID string) (model.PaymentSessionStatus, error) {
	var resp orderResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s", url.PathEscape(sessionID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", &domainErrors.PaymentError{Op: "status", Cause: err}
	}
	return model.PaymentSessionStatus(resp.Status), nil
}

func (c *HTTPClient) buildCreateOrderRequest(order *model.Order, payerName string) createOrderRequest {
	items := make([]item, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, item{
			Name:       it.ProductName,
			UnitAmount: money{CurrencyCode: currencyCode, Value: it.UnitPrice.StringFixed(model.MoneyScale)},
			Quantity:   strconv.Itoa(it.Quantity),
			Category:   "PHYSICAL_GOODS",
		})
	}

	subtotal := model.RoundMoney(order.Subtotal)
	shipping := model.RoundMoney(order.ShippingCost)
	tax := model.RoundMoney(order.Tax)
	grandTotal := model.RoundMoney(order.GrandTotal)

	// The submitted total must equal the breakdown sum or PayPal rejects the
	// order with a 422. Trust the breakdown when they disagree.
	breakdownSum := subtotal.Add(shipping).Add(tax)
	if !grandTotal.Equal(breakdownSum) {
		c.logger.Warn("paypal amount mismatch, submitting breakdown sum",
			slog.String("grand_total", grandTotal.String()),
			slog.String("breakdown_sum", breakdownSum.String()),
			slog.String("order", order.Number),
		)
		grandTotal = breakdownSum
	}

	unit := purchaseUnit{
		ReferenceID: order.Number,
		Description: fmt.Sprintf("Order #%s", order.Number),
		Amount: amountWithBreakdown{
			CurrencyCode: currencyCode,
			Value:        grandTotal.StringFixed(model.MoneyScale),
			Breakdown: amountBreakdown{
				ItemTotal: money{CurrencyCode: currencyCode, Value: subtotal.StringFixed(model.MoneyScale)},
				Shipping:  money{CurrencyCode: currencyCode, Value: shipping.StringFixed(model.MoneyScale)},
				TaxTotal:  money{CurrencyCode: currencyCode, Value: tax.StringFixed(model.MoneyScale)},
			},
		},
		Items: items,
	}
	unit.Shipping.Name = shippingName{FullName: payerName}
	unit.Shipping.Address.AddressLine1 = order.ShippingAddress
	unit.Shipping.Address.CountryCode = "US"

	return createOrderRequest{
		Intent:        "CAPTURE",
		PurchaseUnits: []purchaseUnit{unit},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	// path may carry escaped segments, JoinPath keeps them escaped exactly once.
	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("paypal request failed",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(raw)),
		)
		return fmt.Errorf("paypal error: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// token returns a cached client-credentials access token, refreshing when the
// cached one is within a minute of expiry.
func (c *HTTPClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Add(time.Minute).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	endpoint := c.baseURL.JoinPath("/v1/oauth2/token")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(),
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("paypal token request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return "", fmt.Errorf("paypal token error: %s", resp.Status)
	}

	var data tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("paypal token response missing access_token")
	}

	c.accessToken = data.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(data.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
