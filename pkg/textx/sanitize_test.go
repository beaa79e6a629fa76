// Package textx contains tests for the text utilities.
package textx

import "testing"

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "  a\n\nb\t\tc   d "
	got := CollapseWhitespace(in)
	if got != "a b c d" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestNormalize(t *testing.T) {
	in := "Jane\x00 Doe\n\nSenior\tEngineer"
	got := Normalize(in)
	if got != "Jane Doe Senior Engineer" {
		t.Fatalf("unexpected: %q", got)
	}
}
