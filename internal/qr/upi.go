// Package qr builds UPI payment intent strings and renders them as QR
// codes for scan-to-pay.
package qr

import (
	"encoding/base64"
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// pngSize is the rendered QR image edge in pixels.
const pngSize = 300

// UPIIntent encodes a upi://pay deep link. Amount is taken in minor
// units (paise) and rendered with two decimals as UPI requires.
func UPIIntent(upiID, merchantName, referenceID string, amount int64, currency string) string {
	params := url.Values{}
	params.Set("pa", upiID)
	params.Set("pn", merchantName)
	params.Set("am", fmt.Sprintf("%.2f", float64(amount)/100))
	params.Set("cu", currency)
	params.Set("tn", "Payment_"+referenceID)
	return "upi://pay?" + params.Encode()
}

// EncodePNG renders the payload as a QR code PNG and returns it
// base64-encoded for embedding in JSON responses.
func EncodePNG(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, pngSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
