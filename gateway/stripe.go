package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"footyreserve/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/account"
	"github.com/stripe/stripe-go/v76/accountlink"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/transfer"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway implements PaymentGateway against the Stripe API.
// Amounts are pounds; Stripe wants pence.
type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway() *StripeGateway {
	stripe.Key = config.AppConfig.StripeKey
	return &StripeGateway{webhookSecret: config.AppConfig.StripeWebhookSecret}
}

func toPence(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount float64, currency, description string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(toPence(amount)),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to retrieve payment intent %s: %w", intentID, err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		return fmt.Errorf("stripe: failed to cancel payment intent %s: %w", intentID, err)
	}
	return nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, amount float64, currency, destination, idempotencyKey string, metadata map[string]string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(toPence(amount)),
		Currency:    stripe.String(currency),
		Destination: stripe.String(destination),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(idempotencyKey)
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	tr, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: transfer failed: %w", err)
	}
	return tr.ID, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe: webhook signature verification failed: %w", err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded":
		out.Kind = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		out.Kind = EventPaymentFailed
	case "payment_intent.canceled":
		out.Kind = EventPaymentCanceled
	default:
		out.Kind = EventUnknown
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: failed to decode payment intent payload: %w", err)
	}
	out.IntentID = pi.ID
	out.Metadata = pi.Metadata
	if pi.LatestCharge != nil {
		out.ChargeID = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	return out, nil
}

func (g *StripeGateway) CreateConnectedAccount(ctx context.Context, email string, metadata map[string]string) (string, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String("GB"),
		Email:   stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	acct, err := account.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: failed to create connected account: %w", err)
	}
	return acct.ID, nil
}

func (g *StripeGateway) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(config.AppConfig.FrontendURL + "/team/setup-payout?refresh=true"),
		ReturnURL:  stripe.String(config.AppConfig.FrontendURL + "/team/setup-payout?success=true"),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := accountlink.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: failed to create onboarding link: %w", err)
	}
	return link.URL, nil
}
