package errors_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/notify"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"go.uber.org/zap"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", errs.Invalid("name", "required"), http.StatusBadRequest},
		{"credentials", errs.ErrInvalidCredentials, http.StatusUnauthorized},
		{"permission", fmt.Errorf("accept: %w", errs.ErrPermissionDenied), http.StatusForbidden},
		{"not found", fmt.Errorf("project x: %w", errs.ErrNotFound), http.StatusNotFound},
		{"transition", fmt.Errorf("p: %w", errs.ErrInvalidTransition), http.StatusConflict},
		{"moved project", fmt.Errorf("project p is accepted, not pending: %w: %w", errs.ErrNotFound, errs.ErrInvalidTransition), http.StatusNotFound},
		{"duplicate", errs.ErrDuplicate, http.StatusConflict},
		{"onboarding", errs.ErrOnboardingDone, http.StatusConflict},
		{"store", fmt.Errorf("cart: %w: timeout", errs.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"partial", &notify.PartialFanoutError{EventID: "e"}, http.StatusAccepted},
		{"other", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uierrors.Status(tt.err); got != tt.want {
				t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrite_HidesServerErrors(t *testing.T) {
	el := uierrors.NewErrorLogger(zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	el.Write(rec, req, "list projects", fmt.Errorf("secret connection string leaked"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal error" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestWrite_ValidationMessage(t *testing.T) {
	el := uierrors.NewErrorLogger(zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects", nil)
	el.Write(rec, req, "create project", fmt.Errorf("create: %w", errs.Invalid("name", "required")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "name: required") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"ok", `{"name":"x"}`, false},
		{"unknown field", `{"name":"x","extra":1}`, true},
		{"trailing", `{"name":"x"}{"name":"y"}`, true},
		{"malformed", `{"name":`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := uierrors.Decode(httptest.NewRecorder(), req, &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode(%s) err = %v, wantErr %v", tt.body, err, tt.wantErr)
			}
		})
	}
}
