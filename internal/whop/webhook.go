package whop

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Whop delivers webhooks in the Standard Webhooks format: the signature header
// carries one or more "v1,<base64 hmac>" entries computed over
// "<id>.<timestamp>.<payload>" with the shared secret.
const (
	HeaderWebhookID        = "webhook-id"
	HeaderWebhookTimestamp = "webhook-timestamp"
	HeaderWebhookSignature = "webhook-signature"

	webhookSecretPrefix = "whsec_"
	timestampTolerance  = 5 * time.Minute
)

var ErrSignatureInvalid = errors.New("webhook signature invalid")

// WebhookHeaders is the subset of delivery headers used for verification.
type WebhookHeaders struct {
	ID        string
	Timestamp string
	Signature string
}

// HasSignature reports whether the delivery carries signature material at all.
// Whop test deliveries omit it entirely.
func (h WebhookHeaders) HasSignature() bool {
	return h.Signature != ""
}

// VerifyWebhook checks payload authenticity against the shared secret. Any
// failure, including a stale timestamp, maps to ErrSignatureInvalid.
func VerifyWebhook(payload []byte, headers WebhookHeaders, secret string, now time.Time) error {
	// A signed delivery without a configured secret cannot be verified and
	// must be rejected, never accepted or treated as a server fault.
	if secret == "" {
		return fmt.Errorf("%w: no secret configured to verify signed delivery", ErrSignatureInvalid)
	}
	if headers.ID == "" || headers.Timestamp == "" || headers.Signature == "" {
		return fmt.Errorf("%w: missing webhook headers", ErrSignatureInvalid)
	}

	ts, err := strconv.ParseInt(headers.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrSignatureInvalid)
	}
	age := now.Unix() - ts
	if age > int64(timestampTolerance.Seconds()) || age < -int64(timestampTolerance.Seconds()) {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return fmt.Errorf("decode webhook secret: %w", err)
	}

	signedContent := headers.ID + "." + headers.Timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signedContent))
	expected := mac.Sum(nil)

	for _, entry := range strings.Fields(headers.Signature) {
		version, sig, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		provided, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, provided) {
			return nil
		}
	}
	return ErrSignatureInvalid
}

// decodeSecret strips the optional whsec_ prefix and base64-decodes the rest.
// Secrets that do not decode are used as raw bytes, matching provider tooling
// that hands out plain-text secrets in sandbox mode.
func decodeSecret(secret string) ([]byte, error) {
	trimmed := strings.TrimPrefix(secret, webhookSecretPrefix)
	if key, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return key, nil
	}
	return []byte(trimmed), nil
}

// SignWebhook produces a v1 signature entry for the given delivery. Used by
// sandbox tooling and tests to fabricate verifiable deliveries.
func SignWebhook(payload []byte, id, timestamp, secret string) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + timestamp + "." + string(payload)))
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
