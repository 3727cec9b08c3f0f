package service

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateOriginalURL(t *testing.T) {
	svc := &URLService{}

	longURL := "https://example.com/" + strings.Repeat("a", maxOriginalURLLength)

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"empty", "", ErrInvalidOriginalURL},
		{"invalid_scheme", "ftp://example.com", ErrInvalidOriginalURL},
		{"missing_host", "https://", ErrInvalidOriginalURL},
		{"relative_path", "/just/a/path", ErrInvalidOriginalURL},
		{"too_long", longURL, ErrURLTooLong},
		{"valid", "https://example.com/path", nil},
		{"valid_http", "http://example.com", nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := svc.validateOriginalURL(test.raw)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestGenerateRandomShortCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := generateRandomShortCode()
		if len(code) != shortCodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), shortCodeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(shortCodeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Fatalf("expected near-unique codes, got %d distinct out of 100", len(seen))
	}
}

func TestNewPaymentReference(t *testing.T) {
	ref := newPaymentReference()

	if !strings.HasPrefix(ref, "PAY-") {
		t.Fatalf("reference %q missing PAY- prefix", ref)
	}
	suffix := strings.TrimPrefix(ref, "PAY-")
	if len(suffix) != 8 {
		t.Fatalf("reference suffix %q has length %d, want 8", suffix, len(suffix))
	}
	if suffix != strings.ToUpper(suffix) {
		t.Fatalf("reference suffix %q is not uppercase", suffix)
	}

	if newPaymentReference() == ref {
		t.Fatal("consecutive references should differ")
	}
}

func TestLooksLikeEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{"a@b", true},
		{"", false},
		{"no-at-sign", false},
		{"@leading.at", false},
		{"trailing.at@", false},
		{"spaces in@example.com", false},
	}

	for _, tt := range tests {
		if got := looksLikeEmail(tt.email); got != tt.want {
			t.Errorf("looksLikeEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
