package whop

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_dGVzdC1zZWNyZXQtZm9yLXdlYmhvb2tz"

func signedHeaders(t *testing.T, payload []byte, now time.Time) WebhookHeaders {
	t.Helper()
	ts := fmt.Sprintf("%d", now.Unix())
	sig, err := SignWebhook(payload, "msg_1", ts, testSecret)
	if err != nil {
		t.Fatalf("sign webhook: %v", err)
	}
	return WebhookHeaders{ID: "msg_1", Timestamp: ts, Signature: sig}
}

func TestVerifyWebhookRoundTrip(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"type":"payment.succeeded"}`)
	headers := signedHeaders(t, payload, now)

	if err := VerifyWebhook(payload, headers, testSecret, now); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyWebhookTamperedPayload(t *testing.T) {
	now := time.Now()
	headers := signedHeaders(t, []byte(`{"type":"payment.succeeded"}`), now)

	err := VerifyWebhook([]byte(`{"type":"payment.failed"}`), headers, testSecret, now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyWebhookWrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	headers := signedHeaders(t, payload, now)

	err := VerifyWebhook(payload, headers, "whsec_b3RoZXItc2VjcmV0", now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyWebhookStaleTimestamp(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	headers := signedHeaders(t, payload, now.Add(-10*time.Minute))

	err := VerifyWebhook(payload, headers, testSecret, now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for stale timestamp, got %v", err)
	}
}

func TestVerifyWebhookNoSecretConfigured(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	headers := signedHeaders(t, payload, now)

	err := VerifyWebhook(payload, headers, "", now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("an unverifiable signed delivery must map to ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyWebhookMissingHeaders(t *testing.T) {
	err := VerifyWebhook([]byte(`{}`), WebhookHeaders{Signature: "v1,abc"}, testSecret, time.Now())
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyWebhookMultipleSignatures(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"type":"payment.succeeded"}`)
	headers := signedHeaders(t, payload, now)
	// Key rotation delivers several space separated entries; any match passes.
	headers.Signature = "v1,Zm9yZWlnbi1zaWduYXR1cmU= " + headers.Signature

	if err := VerifyWebhook(payload, headers, testSecret, now); err != nil {
		t.Fatalf("expected valid signature among several, got %v", err)
	}
}
