package mockprovider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.AccountSID == "" {
		cfg.AccountSID = "AC1"
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = "secret"
	}
	s := New(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, ts *httptest.Server, user, pass string, form url.Values) (*http.Response, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/2010-04-01/Accounts/"+user+"/Messages.json", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(user, pass)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, out
}

func TestSendStoresMessage(t *testing.T) {
	fixed := time.Date(2023, 2, 11, 2, 25, 5, 0, time.UTC)
	s, ts := newTestServer(t, Config{Now: func() time.Time { return fixed }})

	resp, out := post(t, ts, "AC1", "secret", url.Values{"Body": {"hi"}, "To": {"+15550001"}, "From": {"+15550002"}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, out)
	}
	if resp.Header.Get("Twilio-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
	if out["body"] != "hi" || out["from"] != "+15550002" || out["num_segments"] != "1" {
		t.Fatalf("unexpected message %v", out)
	}
	if out["date_created"] != "Sat, 11 Feb 2023 02:25:05 +0000" {
		t.Fatalf("unexpected date_created %v", out["date_created"])
	}
	if len(s.Messages()) != 1 || s.Requests() != 1 {
		t.Fatalf("expected one stored message and one request, got %d/%d", len(s.Messages()), s.Requests())
	}
}

func TestSendRejects(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	cases := []struct {
		name   string
		pass   string
		form   url.Values
		status int
		code   float64
	}{
		{"bad auth", "nope", url.Values{"Body": {"x"}, "To": {"+1"}, "From": {"+2"}}, http.StatusUnauthorized, 20003},
		{"no to", "secret", url.Values{"Body": {"x"}, "From": {"+2"}}, http.StatusBadRequest, 21604},
		{"no body", "secret", url.Values{"To": {"+1"}, "From": {"+2"}}, http.StatusBadRequest, 21602},
		{"no sender", "secret", url.Values{"Body": {"x"}, "To": {"+1"}}, http.StatusBadRequest, 21603},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, out := post(t, ts, "AC1", tc.pass, tc.form)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if out["code"] != tc.code {
				t.Fatalf("expected code %v, got %v", tc.code, out["code"])
			}
		})
	}
}

func TestOutcomesRoundRobin(t *testing.T) {
	_, ts := newTestServer(t, Config{Outcomes: []string{"ok", "server_error:20501"}})
	form := url.Values{"Body": {"x"}, "To": {"+1"}, "MessagingServiceSid": {"MG1"}}

	resp, _ := post(t, ts, "AC1", "secret", form)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first: expected 201, got %d", resp.StatusCode)
	}
	resp, out := post(t, ts, "AC1", "secret", form)
	if resp.StatusCode != http.StatusInternalServerError || out["code"] != float64(20501) {
		t.Fatalf("second: expected 500/20501, got %d/%v", resp.StatusCode, out["code"])
	}
	resp, _ = post(t, ts, "AC1", "secret", form)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("third: expected 201, got %d", resp.StatusCode)
	}
}

func TestListPaging(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	for _, b := range []string{"a", "b", "c"} {
		post(t, ts, "AC1", "secret", url.Values{"Body": {b}, "To": {"+1"}, "From": {"+2"}})
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/2010-04-01/Accounts/AC1/Messages.json?PageSize=2&Page=1", nil)
	req.SetBasicAuth("AC1", "secret")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var page map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	msgs := page["messages"].([]any)
	if len(msgs) != 1 || msgs[0].(map[string]any)["body"] != "c" {
		t.Fatalf("unexpected page messages %v", msgs)
	}
	if page["next_page_uri"] != nil {
		t.Fatalf("expected no next page, got %v", page["next_page_uri"])
	}
	if page["previous_page_uri"] != "/2010-04-01/Accounts/AC1/Messages.json?PageSize=2&Page=0" {
		t.Fatalf("unexpected previous page %v", page["previous_page_uri"])
	}
	if page["start"] != float64(2) || page["end"] != float64(2) {
		t.Fatalf("unexpected start/end %v/%v", page["start"], page["end"])
	}
}

func TestSegments(t *testing.T) {
	if got := segments(strings.Repeat("a", 160)); got != 1 {
		t.Fatalf("160 chars: expected 1 segment, got %d", got)
	}
	if got := segments(strings.Repeat("a", 161)); got != 2 {
		t.Fatalf("161 chars: expected 2 segments, got %d", got)
	}
	if got := segments(strings.Repeat("a", 307)); got != 3 {
		t.Fatalf("307 chars: expected 3 segments, got %d", got)
	}
}

func TestListEmpty(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/2010-04-01/Accounts/AC1/Messages.json", nil)
	req.SetBasicAuth("AC1", "secret")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var page map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	msgs, ok := page["messages"].([]any)
	if !ok || len(msgs) != 0 {
		t.Fatalf("expected empty messages array, got %v", page["messages"])
	}
	if page["page_size"] != float64(50) {
		t.Fatalf("expected default page size, got %v", page["page_size"])
	}
}
