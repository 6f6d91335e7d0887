package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantpilot/quantpilot/internal/core"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	JSON(rec, http.StatusOK, map[string]string{"hello": "world"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var resp SuccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Meta.Timestamp.IsZero() {
		t.Error("expected meta timestamp")
	}
}

func TestAction(t *testing.T) {
	rec := httptest.NewRecorder()

	Action(rec, false, "session already running", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("precondition violations are 200, got %d", rec.Code)
	}

	var resp ActionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Message != "session already running" {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestErrorWithCoreError(t *testing.T) {
	rec := httptest.NewRecorder()

	Error(rec, http.StatusConflict, core.WrapError(core.ErrCycleInFlight, errors.New("tick overlap")))

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Error.Code != "CYCLE_IN_FLIGHT" {
		t.Errorf("expected CYCLE_IN_FLIGHT, got %s", resp.Error.Code)
	}
	if resp.Error.Cause != "tick overlap" {
		t.Errorf("expected cause, got %s", resp.Error.Cause)
	}
}

func TestErrorWithPlainError(t *testing.T) {
	rec := httptest.NewRecorder()

	Error(rec, http.StatusInternalServerError, errors.New("boom"))

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", resp.Error.Code)
	}
}
