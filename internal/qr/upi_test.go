package qr

import (
	"bytes"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
)

func TestUPIIntent(t *testing.T) {
	t.Parallel()

	intent := UPIIntent("merchant@upi", "Snipay", "PAY-1A2B3C4D", 500, "INR")

	if !strings.HasPrefix(intent, "upi://pay?") {
		t.Fatalf("expected upi://pay link, got %q", intent)
	}

	parsed, err := url.Parse(intent)
	if err != nil {
		t.Fatalf("intent does not parse: %v", err)
	}
	query := parsed.Query()

	tests := []struct {
		key  string
		want string
	}{
		{"pa", "merchant@upi"},
		{"pn", "Snipay"},
		{"am", "5.00"},
		{"cu", "INR"},
		{"tn", "Payment_PAY-1A2B3C4D"},
	}
	for _, tt := range tests {
		if got := query.Get(tt.key); got != tt.want {
			t.Errorf("param %s = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestUPIIntentAmountRendering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		paise int64
		want  string
	}{
		{1, "0.01"},
		{100, "1.00"},
		{12345, "123.45"},
		{100000, "1000.00"},
	}

	for _, tt := range tests {
		intent := UPIIntent("m@upi", "M", "PAY-X", tt.paise, "INR")
		parsed, err := url.Parse(intent)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := parsed.Query().Get("am"); got != tt.want {
			t.Errorf("amount %d paise rendered %q, want %q", tt.paise, got, tt.want)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	t.Parallel()

	encoded, err := EncodePNG("upi://pay?pa=merchant@upi&am=5.00")
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}

	pngMagic := []byte{0x89, 'P', 'N', 'G'}
	if !bytes.HasPrefix(raw, pngMagic) {
		t.Error("decoded payload is not a PNG")
	}
}
