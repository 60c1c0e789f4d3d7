package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/tournament-progression/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrMatchNotFound, http.StatusNotFound},
		{fmt.Errorf("loading: %w", services.ErrBracketNotFound), http.StatusNotFound},
		{services.ErrInvalidSetScore, http.StatusUnprocessableEntity},
		{services.ErrNoValidLayout, http.StatusUnprocessableEntity},
		{services.ErrKnockoutStarted, http.StatusConflict},
		{services.ErrNotEnoughOfficials, http.StatusServiceUnavailable},
		{services.ErrBusy, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "connection reset") {
				t.Fatal("internal error leaked to the client")
			}
		})
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"winner_entry_id": 3}`, ""},
		{"empty", ``, "must not be empty"},
		{"unknown field", `{"winner": 3}`, "unknown key"},
		{"wrong type", `{"winner_entry_id": "3"}`, "incorrect JSON type"},
		{"two values", `{"winner_entry_id": 3}{}`, "single JSON value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var dst advanceWinnerInput
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			err := readJSON(httptest.NewRecorder(), req, &dst)
			if tc.wantErr == "" {
				if err != nil || dst.WinnerEntryID != 3 {
					t.Fatalf("unexpected result %+v, %v", dst, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://draws.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/ws/contents/1", nil)
	if !check(req) {
		t.Fatal("expected requests without Origin to pass")
	}
	req.Header.Set("Origin", "https://evil.example.com")
	if check(req) {
		t.Fatal("expected a foreign origin to be rejected")
	}
	req.Header.Set("Origin", "https://draws.example.com")
	if !check(req) {
		t.Fatal("expected the configured origin to pass")
	}
}
