// Package saga coordinates the payment-gated URL issuance workflow: a
// payment intent is requested, the user settles it out of band, the
// settlement is confirmed, and only then is the short URL created. The
// workflow is an explicit state machine; every failure leaves it in a
// well-defined state, and retry is always a fresh user action.
package saga

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/snipay/snipay/internal/gateway"
	"github.com/snipay/snipay/internal/model"
)

// Phase is the workflow state. Transitions:
//
//	Collecting -> AwaitingPayment  (intent issued)
//	AwaitingPayment -> Completed   (confirmed, URL created)
//	AwaitingPayment -> Collecting  (explicit cancel)
//	Completed -> Collecting        (explicit reset, "shorten another")
type Phase int

const (
	// PhaseCollecting is the initial state: gathering the URL to shorten.
	PhaseCollecting Phase = iota
	// PhaseAwaitingPayment holds an issued intent while the user pays.
	PhaseAwaitingPayment
	// PhaseCompleted is terminal until the user explicitly resets.
	PhaseCompleted
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseAwaitingPayment:
		return "awaiting_payment"
	case PhaseCompleted:
		return "completed"
	default:
		return "invalid"
	}
}

// PaymentGateway issues intents and checks settlement.
type PaymentGateway interface {
	RequestIntent(ctx context.Context) (*model.PaymentIntent, error)
	Confirm(ctx context.Context, referenceID string) (gateway.ConfirmationResult, error)
}

// ResourceGateway creates short URLs against confirmed payment references.
type ResourceGateway interface {
	Create(ctx context.Context, originalURL, referenceID string) (*model.ShortURL, error)
}

// Workflow errors.
var (
	// ErrBusy means a gateway call for this workflow is already in
	// flight. Calls are never overlapped: the caller must wait for the
	// in-flight one to settle.
	ErrBusy = errors.New("an operation is already in progress")
	// ErrWrongPhase means the requested operation is not valid in the
	// current phase.
	ErrWrongPhase = errors.New("operation not valid in current phase")
	// ErrInvalidURL means the supplied input is not an absolute URL.
	ErrInvalidURL = errors.New("input must be an absolute URL")
	// ErrNoIntent means the held payment reference was discarded after a
	// terminal failure; the only way forward is an explicit cancel.
	ErrNoIntent = errors.New("no payment intent held; cancel to start over")

	// ErrNotYetSettled reports that the payment has not arrived. The
	// intent is preserved and confirmation may be re-triggered.
	ErrNotYetSettled = errors.New("payment not settled yet; complete the payment and try again")
	// ErrIntentExpired reports that the settlement window closed.
	ErrIntentExpired = errors.New("payment reference expired; cancel and request a new one")
	// ErrIntentUnknown reports that the server rejected the reference as
	// unrecognized.
	ErrIntentUnknown = errors.New("payment reference not recognized; cancel and request a new one")
)

// Issuance is a single-user issuance workflow instance. It owns all
// transient workflow state; one instance never runs two gateway calls
// at once, and terminal states are only left by explicit user action.
type Issuance struct {
	payments  PaymentGateway
	resources ResourceGateway
	notify    func(*model.ShortURL)

	mu          sync.Mutex
	busy        bool
	phase       Phase
	originalURL string
	intent      *model.PaymentIntent
	result      *model.ShortURL
	lastErr     error
}

// New creates an issuance workflow in the collecting phase. notify, if
// non-nil, is invoked exactly once per successful completion, after the
// state transition is visible.
func New(payments PaymentGateway, resources ResourceGateway, notify func(*model.ShortURL)) *Issuance {
	return &Issuance{
		payments:  payments,
		resources: resources,
		notify:    notify,
		phase:     PhaseCollecting,
	}
}

// Begin accepts the URL to shorten and requests a payment intent.
// On success the workflow advances to awaiting payment. On failure it
// stays in collecting with the error recorded: no intent was issued, so
// there is nothing to discard.
func (i *Issuance) Begin(ctx context.Context, originalURL string) error {
	i.mu.Lock()
	if i.busy {
		i.mu.Unlock()
		return ErrBusy
	}
	if i.phase != PhaseCollecting {
		i.mu.Unlock()
		return ErrWrongPhase
	}
	if !isAbsoluteURL(originalURL) {
		i.lastErr = ErrInvalidURL
		i.mu.Unlock()
		return ErrInvalidURL
	}
	i.originalURL = originalURL
	i.busy = true
	i.mu.Unlock()

	intent, err := i.payments.RequestIntent(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.busy = false

	if err != nil {
		i.lastErr = err
		return err
	}

	i.intent = intent
	i.phase = PhaseAwaitingPayment
	i.lastErr = nil
	return nil
}

// ConfirmAndCreate checks settlement of the held reference and, if
// confirmed, immediately creates the short URL.
//
// Retryable outcomes (not settled yet, transport failures, generic
// upstream rejections) keep the intent so the user can try again.
// Terminal outcomes (expired, unknown, reference already consumed)
// discard the intent; the user must cancel back to collecting to obtain
// a fresh one — intents are never re-requested automatically because
// issuing one has real-world cost.
func (i *Issuance) ConfirmAndCreate(ctx context.Context) error {
	i.mu.Lock()
	if i.busy {
		i.mu.Unlock()
		return ErrBusy
	}
	if i.phase != PhaseAwaitingPayment {
		i.mu.Unlock()
		return ErrWrongPhase
	}
	if i.intent == nil {
		i.mu.Unlock()
		return ErrNoIntent
	}
	referenceID := i.intent.ReferenceID
	originalURL := i.originalURL
	i.busy = true
	i.mu.Unlock()

	result, err := i.payments.Confirm(ctx, referenceID)
	if err != nil {
		return i.fail(err, false)
	}

	switch result {
	case gateway.ResultNotYetSettled:
		return i.fail(ErrNotYetSettled, false)
	case gateway.ResultExpired:
		return i.fail(ErrIntentExpired, true)
	case gateway.ResultUnknown:
		return i.fail(ErrIntentUnknown, true)
	case gateway.ResultConfirmed:
		// fall through to creation
	default:
		return i.fail(ErrIntentUnknown, true)
	}

	created, err := i.resources.Create(ctx, originalURL, referenceID)
	if err != nil {
		// A consumed reference can never be presented again.
		discard := gateway.IsConflictCode(err, gateway.CodeReferenceAlreadyConsumed)
		return i.fail(err, discard)
	}

	i.mu.Lock()
	i.busy = false
	i.phase = PhaseCompleted
	i.result = created
	i.intent = nil
	i.lastErr = nil
	notify := i.notify
	i.mu.Unlock()

	if notify != nil {
		notify(created)
	}
	return nil
}

// fail records a confirm/create failure, optionally discarding the
// intent when the reference is terminally dead.
func (i *Issuance) fail(err error, discardIntent bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.busy = false
	i.lastErr = err
	if discardIntent {
		i.intent = nil
	}
	return err
}

// Cancel abandons the awaiting-payment step, discarding the held intent
// and returning to collecting. The URL input is preserved. Cancel does
// not interrupt an in-flight gateway call; it reports ErrBusy instead
// and must be retried once the call settles.
func (i *Issuance) Cancel() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.busy {
		return ErrBusy
	}
	if i.phase != PhaseAwaitingPayment {
		return ErrWrongPhase
	}
	i.phase = PhaseCollecting
	i.intent = nil
	i.lastErr = nil
	return nil
}

// Reset destroys the entire workflow state and starts over from a
// zero-valued collecting phase. Nothing survives: no URL input, no
// intent, no result, no error. This guarantees a stale payment
// reference can never leak into a new workflow instance.
func (i *Issuance) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.busy {
		return ErrBusy
	}
	i.phase = PhaseCollecting
	i.originalURL = ""
	i.intent = nil
	i.result = nil
	i.lastErr = nil
	return nil
}

// Phase returns the current workflow phase.
func (i *Issuance) Phase() Phase {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.phase
}

// Intent returns the held payment intent, or nil.
func (i *Issuance) Intent() *model.PaymentIntent {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.intent
}

// Result returns the created short URL after completion, or nil.
func (i *Issuance) Result() *model.ShortURL {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.result
}

// OriginalURL returns the URL input collected so far.
func (i *Issuance) OriginalURL() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.originalURL
}

// Err returns the error from the most recent failed step, or nil.
func (i *Issuance) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastErr
}

// isAbsoluteURL reports whether raw parses as an absolute URL with a host.
func isAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && parsed.IsAbs() && parsed.Host != ""
}
