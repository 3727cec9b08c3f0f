package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/snipay/snipay/internal/gateway"
	"github.com/snipay/snipay/internal/model"
)

// fakePayments scripts RequestIntent and Confirm outcomes.
type fakePayments struct {
	intent     *model.PaymentIntent
	intentErr  error
	results    []gateway.ConfirmationResult
	confirmErr error

	intentCalls  int
	confirmCalls []string
	entered      chan struct{} // if set, closed when Confirm is entered
	block        chan struct{} // if set, Confirm blocks until closed
}

func (f *fakePayments) RequestIntent(ctx context.Context) (*model.PaymentIntent, error) {
	f.intentCalls++
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return f.intent, nil
}

func (f *fakePayments) Confirm(ctx context.Context, referenceID string) (gateway.ConfirmationResult, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	f.confirmCalls = append(f.confirmCalls, referenceID)
	if f.confirmErr != nil {
		return 0, f.confirmErr
	}
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return result, nil
}

// fakeResources scripts Create outcomes and records presented references.
type fakeResources struct {
	created   *model.ShortURL
	createErr error

	createCalls []string
}

func (f *fakeResources) Create(ctx context.Context, originalURL, referenceID string) (*model.ShortURL, error) {
	f.createCalls = append(f.createCalls, referenceID)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func testIntent(ref string) *model.PaymentIntent {
	return &model.PaymentIntent{
		ReferenceID:  ref,
		Amount:       500,
		Currency:     "INR",
		UPIID:        "merchant@upi",
		MerchantName: "Snipay",
	}
}

func TestHappyPathEndToEnd(t *testing.T) {
	payments := &fakePayments{
		intent:  testIntent("R1"),
		results: []gateway.ConfirmationResult{gateway.ResultConfirmed},
	}
	resources := &fakeResources{
		created: &model.ShortURL{
			ID:          "u1",
			ShortCode:   "abc123",
			OriginalURL: "https://example.com/long-path",
		},
	}

	var notified int
	wf := New(payments, resources, func(u *model.ShortURL) { notified++ })

	if err := wf.Begin(context.Background(), "https://example.com/long-path"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if wf.Phase() != PhaseAwaitingPayment {
		t.Fatalf("expected awaiting_payment, got %s", wf.Phase())
	}
	if wf.Intent().ReferenceID != "R1" {
		t.Fatalf("expected intent R1, got %+v", wf.Intent())
	}

	if err := wf.ConfirmAndCreate(context.Background()); err != nil {
		t.Fatalf("ConfirmAndCreate: %v", err)
	}

	if wf.Phase() != PhaseCompleted {
		t.Fatalf("expected completed, got %s", wf.Phase())
	}
	if wf.Result().ShortCode != "abc123" {
		t.Fatalf("unexpected result: %+v", wf.Result())
	}
	if wf.Intent() != nil {
		t.Fatal("intent must be cleared on completion")
	}
	if notified != 1 {
		t.Fatalf("completion event must fire exactly once, fired %d times", notified)
	}
	if len(payments.confirmCalls) != 1 || payments.confirmCalls[0] != "R1" {
		t.Fatalf("expected exactly one confirm for R1, got %v", payments.confirmCalls)
	}
	if len(resources.createCalls) != 1 || resources.createCalls[0] != "R1" {
		t.Fatalf("reference must be presented to create exactly once, got %v", resources.createCalls)
	}
}

func TestBeginRejectsInvalidURL(t *testing.T) {
	payments := &fakePayments{intent: testIntent("R1")}
	wf := New(payments, &fakeResources{}, nil)

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"relative", "/just/a/path"},
		{"no_host", "https://"},
		{"garbage", "not a url"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := wf.Begin(context.Background(), test.url); !errors.Is(err, ErrInvalidURL) {
				t.Fatalf("expected ErrInvalidURL, got %v", err)
			}
			if wf.Phase() != PhaseCollecting {
				t.Fatalf("phase must stay collecting, got %s", wf.Phase())
			}
		})
	}

	if payments.intentCalls != 0 {
		t.Fatalf("no intent may be requested for invalid input, got %d calls", payments.intentCalls)
	}
}

func TestBeginIntentFailureStaysCollecting(t *testing.T) {
	intentErr := &gateway.Error{Kind: gateway.KindTransport, Message: "could not reach the server"}
	payments := &fakePayments{intentErr: intentErr}
	wf := New(payments, &fakeResources{}, nil)

	err := wf.Begin(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if wf.Phase() != PhaseCollecting {
		t.Fatalf("phase must stay collecting, got %s", wf.Phase())
	}
	if wf.Intent() != nil {
		t.Fatal("no intent must be held after a failed request")
	}
	if !errors.Is(wf.Err(), err) {
		t.Fatalf("last error not recorded: %v", wf.Err())
	}

	// The user can retry from collecting.
	payments.intentErr = nil
	payments.intent = testIntent("R2")
	if err := wf.Begin(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("retry Begin: %v", err)
	}
	if wf.Phase() != PhaseAwaitingPayment {
		t.Fatalf("expected awaiting_payment, got %s", wf.Phase())
	}
}

func TestNotYetSettledPreservesIntent(t *testing.T) {
	payments := &fakePayments{
		intent: testIntent("R1"),
		results: []gateway.ConfirmationResult{
			gateway.ResultNotYetSettled,
			gateway.ResultConfirmed,
		},
	}
	resources := &fakeResources{created: &model.ShortURL{ShortCode: "abc123"}}
	wf := New(payments, resources, nil)

	if err := wf.Begin(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := wf.ConfirmAndCreate(context.Background()); !errors.Is(err, ErrNotYetSettled) {
		t.Fatalf("expected ErrNotYetSettled, got %v", err)
	}
	if wf.Phase() != PhaseAwaitingPayment {
		t.Fatalf("phase must stay awaiting_payment, got %s", wf.Phase())
	}
	if wf.Intent() == nil || wf.Intent().ReferenceID != "R1" {
		t.Fatal("intent must be preserved after not-yet-settled")
	}
	if len(resources.createCalls) != 0 {
		t.Fatal("create must not be attempted before confirmation")
	}

	// Second confirm with the same reference is permitted and succeeds.
	if err := wf.ConfirmAndCreate(context.Background()); err != nil {
		t.Fatalf("second ConfirmAndCreate: %v", err)
	}
	if payments.confirmCalls[0] != "R1" || payments.confirmCalls[1] != "R1" {
		t.Fatalf("both confirms must use R1, got %v", payments.confirmCalls)
	}
	if wf.Phase() != PhaseCompleted {
		t.Fatalf("expected completed, got %s", wf.Phase())
	}
}

func TestExpiredDiscardsIntentAndBlocksCreate(t *testing.T) {
	payments := &fakePayments{
		intent:  testIntent("R1"),
		results: []gateway.ConfirmationResult{gateway.ResultExpired},
	}
	resources := &fakeResources{}
	wf := New(payments, resources, nil)

	if err := wf.Begin(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := wf.ConfirmAndCreate(context.Background()); !errors.Is(err, ErrIntentExpired) {
		t.Fatalf("expected ErrIntentExpired, got %v", err)
	}
	if len(resources.createCalls) != 0 {
		t.Fatal("create must never be attempted after an expired confirmation")
	}
	if wf.Intent() != nil {
		t.Fatal("intent must be discarded after expiry")
	}
	if wf.Phase() != PhaseAwaitingPayment {
		t.Fatalf("phase must stay awaiting_payment, got %s", wf.Phase())
	}

	// The reference is gone; another confirm attempt is refused locally.
	if err := wf.ConfirmAndCreate(context.Background()); !errors.Is(err, ErrNoIntent) {
		t.Fatalf("expected ErrNoIntent, got %v", err)
	}
	if len(payments.confirmCalls) != 1 {
		t.Fatalf("the dead reference must not be confirmed again, got %v", payments.confirmCalls)
	}

	// The only way forward is explicit cancellation.
	if err := wf.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if wf.Phase() != PhaseCollecting {
		t.Fatalf("expected collecting after cancel, got %s", wf.Phase())
	}
	if wf.OriginalURL() != "https://example.com" {
		t.Fatal("cancel must preserve the URL input")
	}
}

func TestUnknownReferenceDiscardsIntent(t *testing.T) {
	payments := &fakePayments{
		intent:  testIntent("R1"),
		results: []gateway.ConfirmationResult{gateway.ResultUnknown},
	}
	wf := New(payments, &fakeResources{}, nil)

	if err := wf.Begin(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := wf.ConfirmAndCreate(context.Background()); !errors.Is(err, ErrIntentUnknown) {
		t.Fatalf("expected ErrIntentUnknown, got %v", err)
	}
	if wf.Intent() != nil {
		t.Fatal("intent must be discarded for an unknown reference")
	}
}

func TestReferenceAlreadyConsumedDiscardsIntent(t *testing.T) {
	payments := &fakePayments{
		intent:  testIntent("R1"),
		results: []gateway.ConfirmationResult{gateway.ResultConfirmed},
	}
	resources := &fakeResources{
		createErr: &gateway.Error{
			Kind:    gateway.KindStateConflict,
			Code:    gateway.CodeReferenceAlreadyConsumed,
			Message: "payment reference already used",
		},
	}
	wf := New(payments, resources, nil)

	if err := wf.Begin(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := wf.ConfirmAndCreate(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if wf.Intent() != nil {
		t.Fatal("intent must be discarded after a consumed-reference conflict")
	}
	if wf.Phase() != PhaseAwaitingPayment {
		t.Fatalf("phase must stay awaiting_payment, got %s", wf.Phase())
	}
}

func TestCreationRacePreservesIntent(t *testing.T) {
	payments := &fakePayments{
		intent:  testIntent("R1"),
		results: []gateway.ConfirmationResult{gateway.ResultConfirmed},
	}
	resources := &fakeResources{
		createErr: &gateway.Error{
			Kind:    gateway.KindStateConflict,
			Code:    gateway.CodePaymentNotConfirmed,
			Message: "payment not confirmed",
		},
	}
	wf := New(payments, resources, nil)

	if err := wf.Begin(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := wf.ConfirmAndCreate(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if wf.Intent() == nil {
		t.Fatal("intent must be preserved for a retryable creation conflict")
	}
}

func TestResetYieldsFreshState(t *testing.T) {
	payments := &fakePayments{
		intent:  testIntent("R1"),
		results: []gateway.ConfirmationResult{gateway.ResultConfirmed},
	}
	resources := &fakeResources{created: &model.ShortURL{ShortCode: "abc123"}}
	wf := New(payments, resources, nil)

	if err := wf.Begin(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := wf.ConfirmAndCreate(context.Background()); err != nil {
		t.Fatalf("ConfirmAndCreate: %v", err)
	}

	if err := wf.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if wf.Phase() != PhaseCollecting {
		t.Fatalf("expected collecting, got %s", wf.Phase())
	}
	if wf.Intent() != nil || wf.Result() != nil || wf.Err() != nil || wf.OriginalURL() != "" {
		t.Fatal("reset must destroy all workflow state")
	}

	// Reset from awaiting-payment must equally leave no residue.
	payments.intent = testIntent("R2")
	if err := wf.Begin(context.Background(), "https://other.example.com"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := wf.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if wf.Intent() != nil || wf.OriginalURL() != "" {
		t.Fatal("reset must discard the held reference")
	}
}

func TestOverlappingCallsAreRefused(t *testing.T) {
	entered := make(chan struct{})
	block := make(chan struct{})
	payments := &fakePayments{
		intent:  testIntent("R1"),
		results: []gateway.ConfirmationResult{gateway.ResultConfirmed},
		entered: entered,
		block:   block,
	}
	resources := &fakeResources{created: &model.ShortURL{ShortCode: "abc123"}}
	wf := New(payments, resources, nil)

	if err := wf.Begin(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = wf.ConfirmAndCreate(context.Background())
	}()

	// Wait until the confirm call is parked inside the gateway.
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("confirm call never reached the gateway")
	}

	// Overlapping operations and cancellation are refused while a call
	// is in flight; the workflow acts only after the call settles.
	if err := wf.ConfirmAndCreate(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for overlapping confirm, got %v", err)
	}
	if err := wf.Cancel(); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for cancel during in-flight call, got %v", err)
	}

	close(block)
	wg.Wait()
	if wf.Phase() != PhaseCompleted {
		t.Fatalf("expected completed after in-flight call settled, got %s", wf.Phase())
	}
}

func TestCancelOutsideAwaitingPayment(t *testing.T) {
	wf := New(&fakePayments{intent: testIntent("R1")}, &fakeResources{}, nil)
	if err := wf.Cancel(); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}
}
