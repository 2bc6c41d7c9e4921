package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"genbridge/internal/domain"
)

func seedJob(f *fixture, id, providerJobID string, status domain.JobStatus) {
	f.ledger.grant("U1", 100)
	_ = f.ledger.Debit(nil, "U1", 20, id)
	_ = f.jobs.Create(nil, &domain.Job{
		ID:            id,
		OwnerID:       "U1",
		Kind:          domain.JobKindTextToVideo,
		Status:        status,
		Provider:      "veo",
		ProviderJobID: providerJobID,
		Cost:          20,
	})
}

func postCallback(f *fixture, provider, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/"+provider, strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Callback-Signature", signature)
	}
	return f.do(req)
}

func TestWebhookApplied(t *testing.T) {
	f := newFixture()
	seedJob(f, "job-1", "op-1", domain.JobStatusPending)

	rec := postCallback(f, "veo", "op-1|succeeded", "valid")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Message != "applied" {
		t.Fatalf("ack = %+v", resp)
	}
	job, err := f.jobs.GetByID(nil, "job-1")
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s, want succeeded", job.Status)
	}
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	f := newFixture()
	seedJob(f, "job-1", "op-1", domain.JobStatusPending)

	first := postCallback(f, "veo", "op-1|succeeded", "valid")
	second := postCallback(f, "veo", "op-1|succeeded", "valid")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d, want both 200", first.Code, second.Code)
	}
	if !strings.Contains(second.Body.String(), "duplicate") {
		t.Fatalf("second ack = %s", second.Body)
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	f := newFixture()
	seedJob(f, "job-1", "op-1", domain.JobStatusPending)

	rec := postCallback(f, "veo", "op-1|succeeded", "forged")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	job, _ := f.jobs.GetByID(nil, "job-1")
	if job.Status != domain.JobStatusPending {
		t.Fatalf("status mutated to %s", job.Status)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	f := newFixture()
	rec := postCallback(f, "veo", "not-a-callback", "valid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebhookUnknownProvider(t *testing.T) {
	f := newFixture()
	rec := postCallback(f, "nonesuch", "op-1|succeeded", "valid")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestWebhookUnknownJobAcknowledged(t *testing.T) {
	f := newFixture()
	rec := postCallback(f, "veo", "op-missing|succeeded", "valid")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestWebhookFailureRefunds(t *testing.T) {
	f := newFixture()
	seedJob(f, "job-1", "op-1", domain.JobStatusPending)

	rec := postCallback(f, "veo", "op-1|failed", "valid")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	balance, _ := f.ledger.Balance(nil, "U1")
	if balance != 100 {
		t.Fatalf("balance = %d, want 100 after refund", balance)
	}
}
