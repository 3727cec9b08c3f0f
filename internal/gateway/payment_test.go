package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/payment/generate-qr" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"paymentReferenceId": "PAY-1A2B3C4D",
			"amount": 500,
			"currency": "INR",
			"upiId": "merchant@upi",
			"merchantName": "Snipay",
			"qrCodeBase64": "aGVsbG8="
		}`))
	}))
	defer server.Close()

	payments := NewPaymentClient(New(server.URL, "tok-123"))

	intent, err := payments.RequestIntent(context.Background())
	if err != nil {
		t.Fatalf("RequestIntent: %v", err)
	}
	if intent.ReferenceID != "PAY-1A2B3C4D" {
		t.Fatalf("unexpected reference: %q", intent.ReferenceID)
	}
	if intent.Amount != 500 || intent.Currency != "INR" {
		t.Fatalf("unexpected amount: %d %s", intent.Amount, intent.Currency)
	}
}

func TestRequestIntentUpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":"RATE_LIMITED","message":"Too many payment intents"}`))
	}))
	defer server.Close()

	payments := NewPaymentClient(New(server.URL, "tok"))

	_, err := payments.RequestIntent(context.Background())
	gwErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if gwErr.Kind != KindUpstream {
		t.Fatalf("expected upstream kind, got %s", gwErr.Kind)
	}
	if gwErr.Code != "RATE_LIMITED" || gwErr.Message != "Too many payment intents" {
		t.Fatalf("structured error not surfaced: %+v", gwErr)
	}
}

func TestRequestIntentTransportFailure(t *testing.T) {
	// Point at a server that is no longer listening.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	payments := NewPaymentClient(New(addr, "tok"))

	_, err := payments.RequestIntent(context.Background())
	gwErr, ok := AsError(err)
	if !ok || gwErr.Kind != KindTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if gwErr.Unwrap() == nil {
		t.Fatal("transport failure must carry its cause")
	}
}

func TestConfirmResultMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ConfirmationResult
	}{
		{"confirmed", http.StatusOK, `{"success":true,"message":"Payment confirmed"}`, ResultConfirmed},
		{"not_settled_by_status", http.StatusPaymentRequired, `{"message":"payment pending"}`, ResultNotYetSettled},
		{"not_settled_by_code", http.StatusConflict, `{"code":"PAYMENT_NOT_SETTLED","message":"not settled"}`, ResultNotYetSettled},
		{"unknown", http.StatusNotFound, `{"code":"PAYMENT_REFERENCE_UNKNOWN","message":"no such reference"}`, ResultUnknown},
		{"expired", http.StatusGone, `{"code":"PAYMENT_EXPIRED","message":"reference expired"}`, ResultExpired},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("paymentReferenceId"); got != "PAY-XYZ" {
					t.Errorf("expected reference in query, got %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(test.status)
				w.Write([]byte(test.body))
			}))
			defer server.Close()

			payments := NewPaymentClient(New(server.URL, "tok"))

			result, err := payments.Confirm(context.Background(), "PAY-XYZ")
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if result != test.want {
				t.Fatalf("expected %s, got %s", test.want, result)
			}
		})
	}
}

func TestConfirmUnmappedRejectionIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":"INTERNAL_ERROR","message":"something broke"}`))
	}))
	defer server.Close()

	payments := NewPaymentClient(New(server.URL, "tok"))

	_, err := payments.Confirm(context.Background(), "PAY-XYZ")
	gwErr, ok := AsError(err)
	if !ok || gwErr.Kind != KindUpstream {
		t.Fatalf("unspecified rejections must stay upstream errors, got %v", err)
	}
}

func TestConfirmTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	payments := NewPaymentClient(New(addr, "tok"))

	_, err := payments.Confirm(context.Background(), "PAY-XYZ")
	var gwErr *Error
	if !errors.As(err, &gwErr) || gwErr.Kind != KindTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
}
