package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mbolis/brand-survey/log"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestErrorHelpersRenderJSON(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter, r *http.Request)
		status  int
		message string
	}{
		{"internal", func(w http.ResponseWriter, r *http.Request) {
			LogInternalError(w, r, "test.internal", io.ErrUnexpectedEOF)
		}, http.StatusInternalServerError, "Internal Server Error"},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			LogNotFound(w, r, "test.not_found", "rec1")
		}, http.StatusNotFound, "Not Found"},
		{"status", func(w http.ResponseWriter, r *http.Request) {
			LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "test.status")
		}, http.StatusUnauthorized, "Unauthorized"},
		{"formatted", func(w http.ResponseWriter, r *http.Request) {
			LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, "test.msg", "no question %s", "q9")
		}, http.StatusNotFound, "no question q9"},
		{"user message", func(w http.ResponseWriter, r *http.Request) {
			LogError(w, r, http.StatusBadGateway, log.WarnLevel, "test.error", io.EOF, "try again")
		}, http.StatusBadGateway, "try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, httptest.NewRequest("GET", "/", nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("content type = %q", ct)
			}
			body := ErrorResponse{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body %q: %v", rec.Body, err)
			}
			if body.Error != tt.message {
				t.Errorf("error = %q, want %q", body.Error, tt.message)
			}
		})
	}
}
