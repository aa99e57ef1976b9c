package ingest

import (
	"strings"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	cases := map[string]string{
		"Add urgency to CTA":         "add urgency to cta",
		"  Add   urgency\tto\nCTA  ": "add urgency to cta",
		"ADD URGENCY TO CTA":         "add urgency to cta",
		"":                           "",
		"Ünïcode   Títle":            "ünïcode títle",
	}
	for in, want := range cases {
		if got := NormalizeTitle(in); got != want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFallbackKey_Stable(t *testing.T) {
	const want = "auto:bf8cd603c03d6633dd2dcf960538dc3bc4658e10414bf06872aa2b9eba210b45"
	if got := FallbackKey("Add urgency to CTA"); got != want {
		t.Fatalf("FallbackKey = %q, want %q", got, want)
	}
	if FallbackKey("  add URGENCY   to cta ") != want {
		t.Fatal("whitespace and case variants must derive the same key")
	}
	if FallbackKey("Add urgency to checkout") == want {
		t.Fatal("different titles must derive different keys")
	}
	if !strings.HasPrefix(want, fallbackKeyPrefix) || len(want) > 255 {
		t.Fatal("fallback key must be prefixed and fit the unique_key column")
	}
}

func TestEffectiveKey(t *testing.T) {
	if got := EffectiveKey("  cta-1 ", "anything"); got != "cta-1" {
		t.Fatalf("explicit key: got %q", got)
	}
	if got := EffectiveKey("   ", "Add urgency to CTA"); got != FallbackKey("Add urgency to CTA") {
		t.Fatalf("blank key must fall back to title hash, got %q", got)
	}
}
