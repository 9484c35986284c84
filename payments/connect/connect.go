package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"livebid/internal/status"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL   string `json:"baseUrl" mapstructure:"base_url"`
	PartnerID string `json:"partnerId" mapstructure:"partner_id"`
	ClientID  string `json:"clientId" mapstructure:"client_id"`
	ClientKey string `json:"clientKey" mapstructure:"client_key"`
	HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`

	// WebhookSecret is the bcrypt hash presented by inbound settlement
	// webhooks.
	WebhookSecret string `json:"webhookSecret" mapstructure:"webhook_secret"`
	Currency      string `json:"currency" mapstructure:"currency"`

	PNSubKey    string `json:"pn_subkey" mapstructure:"pn_subkey"`
	PNSubSecret string `json:"pn_subsecret" mapstructure:"pn_subsecret"`
	PNChannel   string `json:"pn_channel" mapstructure:"pn_channel"`
}

// Account is the provider's view of a seller payout account.
type Account struct {
	AccountID      string
	State          string
	PayoutsEnabled bool
}

// Provider onboards seller payout accounts against the connect partner API
// and receives settlement notifications over the provider's push channel.
type Provider struct {
	currency      string
	webhookSecret string

	pnChannels []string
	sub        *subscription

	client *client

	closeOnce sync.Once
}

func New(ctx context.Context, cfg *Config) (*Provider, error) {
	c := newClient(cfg)

	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	c.setAccessToken(token)
	go c.refreshTokenLoop(ctx)

	p := &Provider{
		currency:      cfg.Currency,
		webhookSecret: cfg.WebhookSecret,
		pnChannels:    []string{cfg.PNChannel},
		client:        c,
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId("connect-" + cfg.PartnerID))
	pnCfg.SubscribeKey = cfg.PNSubKey
	pnCfg.SecretKey = cfg.PNSubSecret

	sub := newSubscription(pnCfg)
	go sub.run(ctx)
	sub.pn.AddListener(sub.lis)
	sub.pn.Subscribe().Channels(p.pnChannels).Execute()
	p.sub = sub

	return p, nil
}

// EnsureAccount creates (or returns) the payout account keyed by the
// seller's uid.
func (p *Provider) EnsureAccount(ctx context.Context, sellerUID string) (string, error) {
	accountID, err := p.client.createAccount(ctx, sellerUID, p.currency)
	if err != nil {
		return "", fmt.Errorf("%w: %v", status.ErrFailedPayout, err)
	}
	return accountID, nil
}

// OnboardingLink returns the hosted KYC flow URL for the account.
func (p *Provider) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	link, err := p.client.onboardingLink(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", status.ErrFailedPayout, err)
	}
	return link, nil
}

// AccountStatus reports the account's onboarding state.
func (p *Provider) AccountStatus(ctx context.Context, accountID string) (*Account, error) {
	payload, err := p.client.accountStatus(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrFailedPayout, err)
	}
	return &Account{
		AccountID:      payload.AccountID,
		State:          payload.State,
		PayoutsEnabled: payload.PayoutsEnabled,
	}, nil
}

// SetTranChannel registers the channel that receives pushed settlements.
func (p *Provider) SetTranChannel(ch chan *status.Transaction) {
	p.sub.ch = ch
}

// VerifyWebhook checks the shared secret presented by an inbound webhook.
func (p *Provider) VerifyWebhook(secret string) bool {
	return CompareHash([]byte(p.webhookSecret), []byte(secret))
}

// Close tears down the push subscription. Safe to call more than once; the
// unsubscribe and listener removal run exactly once.
func (p *Provider) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.sub.pn.Unsubscribe().Channels(p.pnChannels).Execute()
		p.sub.pn.RemoveListener(p.sub.lis)
	})
	return nil
}

type subscription struct {
	pn  *pubnub.PubNub
	lis *pubnub.Listener
	ch  chan *status.Transaction
}

func newSubscription(cfg *pubnub.Config) *subscription {
	return &subscription{
		pn:  pubnub.NewPubNub(cfg),
		lis: pubnub.NewListener(),
	}
}

func (s *subscription) run(ctx context.Context) {
	for {
		select {
		case st := <-s.lis.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("connect: pubnub connected")
			case pubnub.PNReconnectedCategory:
				log.Println("connect: pubnub reconnected")
			case pubnub.PNDisconnectedCategory:
				log.Println("connect: pubnub disconnected")
			case pubnub.PNAccessDeniedCategory:
				log.Println("connect: pubnub access denied")
			default:
				log.Printf("connect: pubnub status %v", st.Category)
			}

		case message := <-s.lis.Message:
			raw, ok := message.Message.(string)
			if !ok {
				log.Printf("connect: unexpected message payload %T", message.Message)
				continue
			}

			var p settlementPayload
			if err := json.NewDecoder(strings.NewReader(raw)).Decode(&p); err != nil {
				log.Printf("connect: decoding settlement: %v", err)
				continue
			}

			tran, err := p.toDomain()
			if err != nil {
				log.Printf("connect: settlement payload: %v", err)
				continue
			}
			if s.ch != nil {
				s.ch <- tran
			}

		case <-ctx.Done():
			log.Println("connect: subscription closing")
			return
		}
	}
}

type settlementPayload struct {
	RefID     string          `json:"refNo"`
	UUID      string          `json:"settlementId"`
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt string          `json:"settledAt"`
}

func (p *settlementPayload) toDomain() (*status.Transaction, error) {
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", p.CreatedAt, time.Local)
	if err != nil {
		return nil, err
	}
	return &status.Transaction{
		RefID:     p.RefID,
		UUID:      p.UUID,
		AccountID: p.AccountID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		CreatedAt: ts,
	}, nil
}
