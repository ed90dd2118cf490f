package gateway

import "context"

// Intent is the gateway-side view of a payment attempt.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Gateway intent statuses the reservation sweep inspects.
const (
	IntentStatusSucceeded             = "succeeded"
	IntentStatusProcessing            = "processing"
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresConfirmation  = "requires_confirmation"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusCanceled              = "canceled"
)

// EventKind identifies a webhook event variant. Dispatch over events
// is exhaustive on this tag; unknown kinds are acknowledged and logged.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
	EventPaymentCanceled
)

// Event is a verified webhook event with its typed payload.
type Event struct {
	Kind EventKind
	// ID is the provider's event id, stable across redeliveries.
	ID string
	// Type is the raw provider event type, kept for logging.
	Type           string
	IntentID       string
	ChargeID       string
	FailureMessage string
	Metadata       map[string]string
}

// PaymentGateway abstracts the payment provider. The settlement and
// payout logic depends only on this interface.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount float64, currency, description string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
	// CreateTransfer moves collected funds to a connected account. The
	// idempotency key makes retried calls after a crash safe.
	CreateTransfer(ctx context.Context, amount float64, currency, destination, idempotencyKey string, metadata map[string]string) (string, error)
	// VerifyWebhook checks the provider signature and decodes the event.
	VerifyWebhook(payload []byte, signature string) (*Event, error)
	CreateConnectedAccount(ctx context.Context, email string, metadata map[string]string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)
}
