package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/parrotlabs/voiceforge/internal/config"
	"github.com/parrotlabs/voiceforge/internal/repository"
	"github.com/parrotlabs/voiceforge/internal/service"
	"github.com/parrotlabs/voiceforge/internal/whop"
)

const webhookTestSecret = "whsec_dGVzdC1zZWNyZXQtZm9yLXdlYmhvb2tz"

func newWebhookServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{WhopWebhookSecret: webhookTestSecret}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog, err := service.NewCatalog(config.DefaultPackages)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	payments := service.NewPaymentService(cfg, log, catalog, repository.NewUserRepository(db), repository.NewConfirmationRepository(db), nil)

	return NewServer(cfg, log, nil, nil, nil, nil, payments), mock
}

func signedWebhookRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig, err := whop.SignWebhook(payload, "msg_1", ts, webhookTestSecret)
	if err != nil {
		t.Fatalf("sign webhook: %v", err)
	}
	r := httptest.NewRequest("POST", "/api/webhooks/payment", bytes.NewReader(payload))
	r.Header.Set(whop.HeaderWebhookID, "msg_1")
	r.Header.Set(whop.HeaderWebhookTimestamp, ts)
	r.Header.Set(whop.HeaderWebhookSignature, sig)
	return r
}

func TestPaymentWebhookCreditsAndAcks(t *testing.T) {
	server, mock := newWebhookServer(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_confirmations").
		WithArgs("rcpt_1", int64(7), "pkg_25", 25, "webhook").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET credits = credits \\+").
		WithArgs(25, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payload := []byte(`{"type":"payment.succeeded","data":{"id":"rcpt_1","metadata":{"packageId":"pkg_25","appUserId":"7"}}}`)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, signedWebhookRequest(t, payload))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["success"] != true {
		t.Fatalf("expected success ack, got %v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaymentWebhookInvalidSignatureIs401(t *testing.T) {
	server, mock := newWebhookServer(t)

	payload := []byte(`{"type":"payment.succeeded","data":{"id":"rcpt_1","metadata":{"packageId":"pkg_25","appUserId":"7"}}}`)
	r := signedWebhookRequest(t, payload)
	r.Header.Set(whop.HeaderWebhookSignature, "v1,Zm9yZ2VkLXNpZ25hdHVyZQ==")

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database access expected: %v", err)
	}
}

func TestPaymentWebhookUnsignedIs401(t *testing.T) {
	server, mock := newWebhookServer(t)

	payload := []byte(`{"type":"payment.succeeded","data":{"id":"rcpt_1","metadata":{"packageId":"pkg_25","appUserId":"7"}}}`)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/webhooks/payment", bytes.NewReader(payload)))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database access expected: %v", err)
	}
}

func TestPaymentWebhookFallbackHeaders(t *testing.T) {
	server, mock := newWebhookServer(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_confirmations").
		WithArgs("rcpt_2", int64(3), "pkg_10", 10, "webhook").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET credits = credits \\+").
		WithArgs(10, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payload := []byte(`{"type":"payment.succeeded","data":{"id":"rcpt_2","metadata":{"packageId":"pkg_10","appUserId":"3"}}}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig, err := whop.SignWebhook(payload, "msg_2", ts, webhookTestSecret)
	if err != nil {
		t.Fatalf("sign webhook: %v", err)
	}
	r := httptest.NewRequest("POST", "/api/webhooks/payment", bytes.NewReader(payload))
	r.Header.Set("x-webhook-id", "msg_2")
	r.Header.Set("x-webhook-timestamp", ts)
	r.Header.Set("x-webhook-signature", sig)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 via fallback headers, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaymentWebhookInertEventIsAcked(t *testing.T) {
	server, mock := newWebhookServer(t)

	payload := []byte(`{"type":"membership.went_valid","data":{"id":"mem_1"}}`)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, signedWebhookRequest(t, payload))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ack for inert event, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database access expected: %v", err)
	}
}

func TestPaymentWebhookProbe(t *testing.T) {
	server, _ := newWebhookServer(t)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/webhooks/payment", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
