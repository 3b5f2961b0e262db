// Package commerce talks to the external commerce system. The rest of the
// service only consumes the Gateway interface: given an email, return the
// paid purchase line items on file for it.
package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/downtowncxsh/xplx-access-bot/entitlement"
)

// ErrGatewayConnectivity is returned for transport-level failures reaching
// the commerce API. ErrGatewayAuth for rejected credentials. Both are
// retryable from the caller's point of view; an empty line-item list is a
// valid result, not an error.
var (
	ErrGatewayConnectivity = errors.New("commerce gateway unreachable")
	ErrGatewayAuth         = errors.New("commerce gateway rejected credentials")
)

// Gateway is the capability the verification workflow and audit sweep
// consume: fetch every paid line item recorded for an email.
type Gateway interface {
	FetchPaidLineItems(ctx context.Context, email string) ([]entitlement.PurchaseLineItem, error)
}

// Client implements Gateway over the commerce system's orders-search
// endpoint.
type Client struct {
	OrdersURL string
	Token     string
	Logger    *logrus.Logger
	HTTP      *http.Client
}

func NewClient(ordersURL, token string, logger *logrus.Logger) *Client {
	return &Client{
		OrdersURL: ordersURL,
		Token:     token,
		Logger:    logger,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

type lineItemPayload struct {
	Title            string `json:"title"`
	IsSubscription   bool   `json:"is_subscription"`
	SubscriptionPlan string `json:"subscription_plan"`
	PaidAt           string `json:"paid_at"`
}

type ordersResponse struct {
	LineItems []lineItemPayload `json:"line_items"`
}

// FetchPaidLineItems queries the orders endpoint for everything paid under
// the given email. The email is sent as-is; normalization is the caller's
// concern.
func (c *Client) FetchPaidLineItems(ctx context.Context, email string) ([]entitlement.PurchaseLineItem, error) {
	endpoint := fmt.Sprintf("%s?%s", c.OrdersURL, url.Values{"email": {email}, "status": {"paid"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build orders request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	res, err := c.HTTP.Do(req)
	if err != nil {
		observeGatewayCall("transport_error", time.Since(start))
		c.Logger.WithFields(logrus.Fields{
			"code": err.Error(),
		}).Error("error in establishing connection to the commerce host")
		return nil, fmt.Errorf("%w: %v", ErrGatewayConnectivity, err)
	}
	defer res.Body.Close()

	observeGatewayCall(fmt.Sprintf("%d", res.StatusCode), time.Since(start))

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		c.Logger.WithFields(logrus.Fields{
			"status": res.StatusCode,
		}).Error("commerce gateway auth failure")
		return nil, ErrGatewayAuth
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayConnectivity, res.StatusCode)
	}
	if !strings.Contains(res.Header.Get("Content-Type"), "application/json") {
		c.Logger.WithFields(logrus.Fields{
			"details": res.Header.Get("Content-Type"),
		}).Error("commerce response content type is not application/json")
		return nil, fmt.Errorf("%w: unexpected content type", ErrGatewayConnectivity)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrGatewayConnectivity, err)
	}

	var parsed ordersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.Logger.WithFields(logrus.Fields{
			"code":         err.Error(),
			"all_response": string(body),
		}).Error("cannot parse commerce orders response")
		return nil, fmt.Errorf("%w: parse body: %v", ErrGatewayConnectivity, err)
	}

	items := make([]entitlement.PurchaseLineItem, 0, len(parsed.LineItems))
	for _, li := range parsed.LineItems {
		item := entitlement.PurchaseLineItem{
			Title:            li.Title,
			IsSubscription:   li.IsSubscription,
			SubscriptionPlan: li.SubscriptionPlan,
		}
		if li.PaidAt != "" {
			// RFC3339 is what the commerce API emits; anything else stays nil
			// and the audit sweep will refuse to act on it.
			if ts, err := time.Parse(time.RFC3339, li.PaidAt); err == nil {
				item.PaidAt = &ts
			} else {
				c.Logger.WithFields(logrus.Fields{
					"paid_at": li.PaidAt,
					"title":   li.Title,
				}).Warn("unparseable paid_at on line item")
			}
		}
		items = append(items, item)
	}
	return items, nil
}
