package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kacamatagratis/kacamatagratis/pkg/automation"
)

type stubRunner struct {
	res *automation.Results
	ran bool
	err error
}

func (s *stubRunner) TryRun(ctx context.Context, trigger string) (*automation.Results, bool, error) {
	return s.res, s.ran, s.err
}

func cronRouter(runner cycleRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAutomationHandler(runner)
	r.POST("/api/cron/automation", h.Cron)
	return r
}

func TestCronRejectsBadSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")
	r := cronRouter(&stubRunner{ran: true, res: &automation.Results{}})

	req := httptest.NewRequest(http.MethodPost, "/api/cron/automation", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestCronReportsCycleResults(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")
	r := cronRouter(&stubRunner{
		ran: true,
		res: &automation.Results{WelcomeMessagesSent: 2, FailedRetries: 1, Errors: []string{}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/cron/automation", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Success bool                `json:"success"`
		Results *automation.Results `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.Results == nil || body.Results.WelcomeMessagesSent != 2 || body.Results.FailedRetries != 1 {
		t.Errorf("results = %+v", body.Results)
	}
}

func TestCronSkippedCycleIsNotSuccess(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")
	r := cronRouter(&stubRunner{ran: false})

	req := httptest.NewRequest(http.MethodPost, "/api/cron/automation", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Success || body.Reason == "" {
		t.Errorf("skipped cycle reported %+v, want success=false with a reason", body)
	}
}
