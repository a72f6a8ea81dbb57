package httpx

import (
	"net/url"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsUnknownAndTrailing(t *testing.T) {
	var out struct {
		Date string `json:"date"`
	}
	if err := DecodeJSON(strings.NewReader(`{"date":"2026-02-05"}`), &out); err != nil {
		t.Fatalf("DecodeJSON error: %v", err)
	}
	if out.Date != "2026-02-05" {
		t.Fatalf("unexpected value: %+v", out)
	}
	if err := DecodeJSON(strings.NewReader(`{"dates":"x"}`), &out); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if err := DecodeJSON(strings.NewReader(`{"date":"x"}{}`), &out); err == nil {
		t.Fatalf("expected trailing object error")
	}
}

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset(url.Values{"limit": {"500"}, "offset": {"20"}}, 20, 100)
	if err != nil {
		t.Fatalf("ParseLimitOffset error: %v", err)
	}
	if limit != 100 || offset != 20 {
		t.Fatalf("unexpected limit/offset: %d/%d", limit, offset)
	}

	limit, offset, err = ParseLimitOffset(url.Values{}, 20, 100)
	if err != nil || limit != 20 || offset != 0 {
		t.Fatalf("unexpected defaults: %d/%d err=%v", limit, offset, err)
	}

	if _, _, err := ParseLimitOffset(url.Values{"limit": {"0"}}, 20, 100); err == nil {
		t.Fatalf("expected invalid limit")
	}
	if _, _, err := ParseLimitOffset(url.Values{"offset": {"-1"}}, 20, 100); err == nil {
		t.Fatalf("expected invalid offset")
	}
}
