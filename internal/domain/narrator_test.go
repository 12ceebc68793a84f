package domain

import (
	"testing"

	"golang.org/x/text/language"
)

func TestNarratorFormatsTransitions(t *testing.T) {
	n := NewNarrator(language.English)

	if got, want := n.ValueChanged(100, 150.5, "afternoon count"), "100.00 → 150.50: afternoon count"; got != want {
		t.Fatalf("ValueChanged = %q, want %q", got, want)
	}
	if got, want := n.Closed(200, ""), "closed at 200.00"; got != want {
		t.Fatalf("Closed = %q, want %q", got, want)
	}
	if got, want := n.Opened(0, "start"), "opened at 0.00: start"; got != want {
		t.Fatalf("Opened = %q, want %q", got, want)
	}
}

func TestNarratorUsesLocaleSeparators(t *testing.T) {
	n := NewNarrator(language.BrazilianPortuguese)
	if got, want := n.ValueChanged(10.5, 20, ""), "10,50 → 20,00"; got != want {
		t.Fatalf("ValueChanged = %q, want %q", got, want)
	}
}

func TestZeroNarratorFallsBackToEnglish(t *testing.T) {
	var n Narrator
	if got, want := n.Closed(3, ""), "closed at 3.00"; got != want {
		t.Fatalf("Closed = %q, want %q", got, want)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-01-05 ")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if d != "2024-01-05" {
		t.Fatalf("ParseDate = %q, want 2024-01-05", d)
	}
	for _, bad := range []string{"", "2024-13-01", "05/01/2024"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("ParseDate(%q) expected error", bad)
		}
	}
}
