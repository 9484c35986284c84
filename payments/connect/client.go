package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"livebid/utils"
)

// client talks to the connect partner API. Every request body is signed
// with HMAC-SHA256; the bearer token is refreshed in the background when
// the API starts answering 401.
type client struct {
	baseURL   string
	partnerID string
	clientID  string
	clientKey string
	hmacKey   string

	accessToken string
	mu          sync.Mutex

	// toggleTokenRefresher wakes the refresh loop early after a 401.
	toggleTokenRefresher chan struct{}

	breaker *utils.CircuitBreaker
	hc      *http.Client
}

func newClient(cfg *Config) *client {
	return &client{
		baseURL:   cfg.BaseURL,
		partnerID: cfg.PartnerID,
		clientID:  cfg.ClientID,
		clientKey: cfg.ClientKey,
		hmacKey:   cfg.HMACKey,

		toggleTokenRefresher: make(chan struct{}, 1),

		breaker: utils.NewCircuitBreaker("connect"),
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// refreshTokenLoop renews the access token periodically, and immediately
// after an unauthorized response, with exponential backoff on failure.
func (c *client) refreshTokenLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.toggleTokenRefresher:
			log.Println("connect: token refresh requested")
		}

		backOff := time.Second
	Retry:
		for {
			token, err := c.authenticate(ctx)
			if err == nil {
				c.setAccessToken(token)
				break Retry
			}

			log.Printf("connect: token refresh: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backOff):
				backOff *= 2
			}
		}
	}
}

func (c *client) setAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *client) authenticate(ctx context.Context) (string, error) {
	requestID, err := requestID()
	if err != nil {
		return "", fmt.Errorf("connect authenticate: %v", err)
	}

	body, err := json.Marshal(map[string]string{
		"requestId":    requestID,
		"partnerId":    c.partnerID,
		"clientId":     c.clientID,
		"clientSecret": c.clientKey,
	})
	if err != nil {
		return "", fmt.Errorf("connect authenticate: %v", err)
	}

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AccessToken string `json:"accessToken"`
			TokenType   string `json:"tokenType"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/api/partner/authenticate", body, false, &reply); err != nil {
		return "", err
	}
	if reply.Status != "OK" {
		return "", fmt.Errorf("connect authenticate: status %s: %s", reply.Status, reply.Message)
	}

	return fmt.Sprintf("%s %s", reply.Data.TokenType, reply.Data.AccessToken), nil
}

type accountPayload struct {
	AccountID      string `json:"accountId"`
	State          string `json:"state"`
	PayoutsEnabled bool   `json:"payoutsEnabled"`
}

func (c *client) createAccount(ctx context.Context, sellerUID, currency string) (string, error) {
	requestID, err := requestID()
	if err != nil {
		return "", fmt.Errorf("connect createAccount: %v", err)
	}

	body, err := json.Marshal(map[string]string{
		"requestId":   requestID,
		"partnerId":   c.partnerID,
		"externalRef": sellerUID,
		"currency":    currency,
	})
	if err != nil {
		return "", fmt.Errorf("connect createAccount: %v", err)
	}

	var reply struct {
		Status  string         `json:"status"`
		Message string         `json:"message"`
		Data    accountPayload `json:"data"`
	}
	if err := c.post(ctx, "/api/partner/accounts", body, true, &reply); err != nil {
		return "", err
	}
	if reply.Status != "OK" {
		return "", fmt.Errorf("connect createAccount: status %s: %s", reply.Status, reply.Message)
	}
	return reply.Data.AccountID, nil
}

func (c *client) onboardingLink(ctx context.Context, accountID string) (string, error) {
	requestID, err := requestID()
	if err != nil {
		return "", fmt.Errorf("connect onboardingLink: %v", err)
	}

	body, err := json.Marshal(map[string]string{
		"requestId": requestID,
		"accountId": accountID,
	})
	if err != nil {
		return "", fmt.Errorf("connect onboardingLink: %v", err)
	}

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			URL       string `json:"url"`
			ExpiresAt string `json:"expiresAt"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/api/partner/accounts/onboarding-link", body, true, &reply); err != nil {
		return "", err
	}
	if reply.Status != "OK" {
		return "", fmt.Errorf("connect onboardingLink: status %s: %s", reply.Status, reply.Message)
	}
	return reply.Data.URL, nil
}

func (c *client) accountStatus(ctx context.Context, accountID string) (*accountPayload, error) {
	requestID, err := requestID()
	if err != nil {
		return nil, fmt.Errorf("connect accountStatus: %v", err)
	}

	body, err := json.Marshal(map[string]string{
		"requestId": requestID,
		"accountId": accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("connect accountStatus: %v", err)
	}

	var reply struct {
		Status  string         `json:"status"`
		Message string         `json:"message"`
		Data    accountPayload `json:"data"`
	}
	if err := c.post(ctx, "/api/partner/accounts/status", body, true, &reply); err != nil {
		return nil, err
	}
	if reply.Status != "OK" {
		if reply.Status == "NOT_FOUND" {
			return nil, errors.New("connect accountStatus: account not found")
		}
		return nil, fmt.Errorf("connect accountStatus: status %s: %s", reply.Status, reply.Message)
	}
	return &reply.Data, nil
}

// post signs and sends one request through the circuit breaker.
func (c *client) post(ctx context.Context, path string, body []byte, authed bool, out any) error {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("connect: bad base url: %v", err)
	}

	_, err = c.breaker.Execute(ctx, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.String()+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("SignedHash", Hmac256(body, []byte(c.hmacKey)))
		if authed {
			req.Header.Set("Authorization", c.getAccessToken())
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			select {
			case c.toggleTokenRefresher <- struct{}{}:
			default:
			}
			return nil, errors.New("connect: unauthorized")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("connect: unexpected status %d", resp.StatusCode)
		}

		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}
