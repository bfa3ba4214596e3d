package analyses

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestAssembleInputTruncatesInOrder(t *testing.T) {
	docA := strings.Repeat("a", 3000*charsPerToken)
	docB := strings.Repeat("b", 3000*charsPerToken)
	docC := strings.Repeat("c", 3000*charsPerToken)
	docs := map[string]string{"10-K": docA, "10-Q": docB, "8-K": docC}
	requested := []string{"10-K", "10-Q", "8-K"}

	got := assembleInput(docs, requested, 4000)

	if !strings.HasPrefix(got, docA) {
		t.Fatal("first category should be included whole")
	}
	if n := strings.Count(got, "b"); n != 1000*charsPerToken {
		t.Fatalf("second category should be truncated to 1000 tokens, got %d chars", n)
	}
	if strings.Contains(got, "c") {
		t.Fatal("categories past the truncated one must be excluded entirely")
	}

	// Deterministic for identical inputs.
	if again := assembleInput(docs, requested, 4000); again != got {
		t.Fatal("assembly must be reproducible")
	}
}

func TestAssembleInputFitsWhole(t *testing.T) {
	docs := map[string]string{
		"10-K": strings.Repeat("a", 400),
		"10-Q": strings.Repeat("b", 400),
	}
	got := assembleInput(docs, []string{"10-K", "10-Q"}, 1000)
	want := docs["10-K"] + "\n\n" + docs["10-Q"]
	if got != want {
		t.Fatalf("expected both categories whole, got %d chars", len(got))
	}
}

func TestCategoryOrder(t *testing.T) {
	docs := map[string]string{"8-K": "x", "10-K": "x", "10-Q": "x", "S-1": "x"}

	got := categoryOrder(docs, []string{"10-q", " 10-K ", "10-Q", "DEF 14A"})
	want := []string{"10-Q", "10-K", "8-K", "S-1"}
	if len(got) != len(want) {
		t.Fatalf("order length = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d] = %q, want %q (%v)", i, got[i], want[i], got)
		}
	}
}

func TestTruncateCharsKeepsRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 100) // two bytes per rune

	got := truncateChars(text, 101)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got[len(got)-2:])
	}
	if len(got) != 100 {
		t.Fatalf("len = %d, want 100 (trimmed back to the rune boundary)", len(got))
	}

	if got := truncateChars("short", 100); got != "short" {
		t.Fatalf("text under the cap must pass through, got %q", got)
	}
}

func TestAssembleInputZeroBudget(t *testing.T) {
	docs := map[string]string{"10-K": "text"}
	if got := assembleInput(docs, []string{"10-K"}, 0); got != "" {
		t.Fatalf("zero budget should produce empty input, got %q", got)
	}
}
