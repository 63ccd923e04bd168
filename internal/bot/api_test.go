package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, out
}

func TestValidateSessionEndpoint(t *testing.T) {
	b, _ := newTestBot(t)
	h := b.Handler("")
	token, err := b.Sessions().Issue(77, "snake")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	rec, out := doJSON(t, h, http.MethodPost, "/validate-session", `{"token":"`+token+`","userId":"77","gameId":"snake"}`)
	if rec.Code != http.StatusOK || out["valid"] != true {
		t.Errorf("string userId: %d %v", rec.Code, out)
	}

	// replay is rejected
	rec, out = doJSON(t, h, http.MethodPost, "/validate-session", `{"token":"`+token+`","userId":77,"gameId":"snake"}`)
	if rec.Code != http.StatusOK || out["valid"] != false {
		t.Errorf("replay: %d %v", rec.Code, out)
	}

	token, _ = b.Sessions().Issue(77, "snake")
	rec, out = doJSON(t, h, http.MethodPost, "/validate-session", `{"token":"`+token+`","userId":77,"gameId":"snake"}`)
	if rec.Code != http.StatusOK || out["valid"] != true {
		t.Errorf("numeric userId: %d %v", rec.Code, out)
	}

	for _, body := range []string{
		`{"userId":77,"gameId":"snake"}`,
		`{"token":"x","gameId":"snake"}`,
		`{"token":"x","userId":77}`,
		`{"token":"x","userId":"abc","gameId":"snake"}`,
	} {
		rec, out := doJSON(t, h, http.MethodPost, "/validate-session", body)
		if rec.Code != http.StatusBadRequest || out["valid"] != false || out["error"] != "Missing parameters" {
			t.Errorf("%s: %d %v", body, rec.Code, out)
		}
	}
}

func TestTrialStatusEndpoint(t *testing.T) {
	b, _ := newTestBot(t)
	h := b.Handler("")

	_, out := doJSON(t, h, http.MethodGet, "/trial-status/55", "")
	if out["used"] != float64(0) || out["remaining"] != float64(3) || out["total"] != float64(3) || out["hasTrials"] != true {
		t.Errorf("fresh user: %v", out)
	}

	for i := 0; i < 3; i++ {
		b.HandleUpdate(context.Background(), callback(55, "play_snake"))
	}
	_, out = doJSON(t, h, http.MethodGet, "/trial-status/55", "")
	if out["used"] != float64(3) || out["remaining"] != float64(0) || out["hasTrials"] != false {
		t.Errorf("exhausted user: %v", out)
	}

	rec, _ := doJSON(t, h, http.MethodGet, "/trial-status/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid userId status = %d", rec.Code)
	}
}

func TestWebhookEndpoint(t *testing.T) {
	b, sender := newTestBot(t)
	h := b.Handler("/telegram")

	update, _ := json.Marshal(command(12, "/help"))
	req := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(string(update)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := sender.last(t); msg.ChatID != 12 || !strings.Contains(msg.Text, "/battle") {
		t.Errorf("webhook reply = %d %q", msg.ChatID, msg.Text)
	}
}
