package dispatch

import (
	"strings"
	"testing"
)

func TestSanitizeTextStripsControlCharacters(t *testing.T) {
	in := "fire\x00 in\tthe\nlobby\x1b"
	got := SanitizeText(in, DescriptionCap)
	if strings.ContainsAny(got, "\x00\t\n\x1b") {
		t.Fatalf("control characters survived: %q", got)
	}
	if got != "fire inthelobby" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeTextAppliesCap(t *testing.T) {
	got := SanitizeText(strings.Repeat("a", 200), NameCap)
	if len([]rune(got)) != NameCap {
		t.Fatalf("len %d", len([]rune(got)))
	}
}

func TestSanitizeTextCapCountsRunes(t *testing.T) {
	in := strings.Repeat("ж", 60)
	got := SanitizeText(in, TypeCap)
	if len([]rune(got)) != TypeCap {
		t.Fatalf("rune len %d", len([]rune(got)))
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := DigitsOnly("+1 (555) 010-4477"); got != "15550104477" {
		t.Fatalf("got %q", got)
	}
}

func TestValidPhone(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"+1 555 010 4477", true},
		{"123456", true},
		{"12345", false},
		{"1234567890123456", false},
		{"no digits here", false},
	}
	for _, c := range cases {
		if got := ValidPhone(c.in); got != c.want {
			t.Fatalf("ValidPhone(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestMaskPhoneNeverRevealsFullNumber(t *testing.T) {
	got := MaskPhone("+1 555 010 4477")
	if strings.Contains(got, "15550104477") {
		t.Fatalf("raw number leaked: %q", got)
	}
	if !strings.HasSuffix(got, "4477") {
		t.Fatalf("expected last four digits, got %q", got)
	}
	if strings.Count(got, "*") != len("15550104477")-4 {
		t.Fatalf("mask width wrong: %q", got)
	}
	if MaskPhone("123") != "***" {
		t.Fatalf("short numbers must be fully masked, got %q", MaskPhone("123"))
	}
}
