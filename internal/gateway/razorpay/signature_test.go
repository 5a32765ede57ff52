package razorpay

import (
	"strings"
	"testing"
)

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{}}`)
	secret := "whsec_test"
	sig := Sign(body, secret)

	if !VerifyWebhookSignature(body, sig, secret) {
		t.Fatalf("expected signature to verify")
	}
	if !VerifyWebhookSignature(body, strings.ToUpper(sig), secret) {
		t.Fatalf("expected hex comparison to ignore case")
	}
	if VerifyWebhookSignature([]byte(`{"event": "payment.captured","payload":{}}`), sig, secret) {
		t.Fatalf("expected re-encoded body to fail verification")
	}
	if VerifyWebhookSignature(body, sig, "other") {
		t.Fatalf("expected wrong secret to fail")
	}
}

func TestVerifyWebhookSignatureRejectsEmptyInputs(t *testing.T) {
	body := []byte(`{}`)
	if VerifyWebhookSignature(body, Sign(body, ""), "") {
		t.Fatalf("expected empty secret to fail")
	}
	if VerifyWebhookSignature(body, "", "secret") {
		t.Fatalf("expected empty signature to fail")
	}
}

func TestVerifyPaymentSignature(t *testing.T) {
	secret := "key_secret"
	sig := Sign([]byte("order_1|pay_1"), secret)

	if !VerifyPaymentSignature("order_1", "pay_1", sig, secret) {
		t.Fatalf("expected payment signature to verify")
	}
	if VerifyPaymentSignature("order_1", "pay_2", sig, secret) {
		t.Fatalf("expected mismatched payment id to fail")
	}
	if VerifyPaymentSignature("", "pay_1", sig, secret) {
		t.Fatalf("expected empty order id to fail")
	}
}
