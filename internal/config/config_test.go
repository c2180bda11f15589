package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseCSV(t *testing.T) {
	got := ParseCSV(" ok, server_error:20500 ,,bad_request ")
	want := []string{"ok", "server_error:20500", "bad_request"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := ParseCSV(" , "); !reflect.DeepEqual(got, []string{"ok"}) {
		t.Fatalf("expected default ok outcome, got %v", got)
	}
}

func TestLoadMockProvider(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("MOCK_OUTCOMES", "ok,rate_limit")
	t.Setenv("MOCK_DELAY_MS", "25")

	cfg, err := LoadMockProvider()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccountSID != "AC123" {
		t.Fatalf("expected account sid from env, got %q", cfg.AccountSID)
	}
	if cfg.AuthToken != "mock_token" {
		t.Fatalf("expected default token, got %q", cfg.AuthToken)
	}
	if !reflect.DeepEqual(cfg.Outcomes, []string{"ok", "rate_limit"}) {
		t.Fatalf("unexpected outcomes %v", cfg.Outcomes)
	}
	if cfg.Delay != 25*time.Millisecond {
		t.Fatalf("unexpected delay %v", cfg.Delay)
	}
}
