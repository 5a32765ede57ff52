package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the lowercase hex HMAC-SHA256 of payload keyed by secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw body.
// raw must be the exact bytes received; re-encoded JSON will not verify.
func VerifyWebhookSignature(raw []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(raw, secret)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

// VerifyPaymentSignature checks the checkout signature over "order_id|payment_id".
func VerifyPaymentSignature(orderID, paymentID, signature, keySecret string) bool {
	orderID = strings.TrimSpace(orderID)
	paymentID = strings.TrimSpace(paymentID)
	if orderID == "" || paymentID == "" {
		return false
	}
	return VerifyWebhookSignature([]byte(orderID+"|"+paymentID), signature, keySecret)
}
