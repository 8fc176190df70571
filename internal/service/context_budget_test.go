package service

import (
	"strings"
	"testing"

	"healthpulse/internal/model"
)

func TestOptimize_ShortInputUnchanged(t *testing.T) {
	b := NewContextBudgeter(wordCounter{}, "m", 10)
	text := "a b c d"

	res := b.Optimize(text)
	if res.Text != text || res.Truncated {
		t.Fatalf("expected unchanged text, got %+v", res)
	}
	if res.Tokens != 4 {
		t.Fatalf("expected 4 tokens, got %d", res.Tokens)
	}
}

func TestOptimize_TruncatesWithinBudget(t *testing.T) {
	b := NewContextBudgeter(wordCounter{}, "m", 10)
	text := strings.Repeat("word ", 50)

	res := b.Optimize(text)
	if !res.Truncated {
		t.Fatal("expected truncation")
	}
	if !strings.HasSuffix(res.Text, TruncationMarker) {
		t.Fatalf("expected marker suffix, got %q", res.Text)
	}
	if res.Tokens > 10 {
		t.Fatalf("truncated text is %d tokens, budget 10", res.Tokens)
	}
	if res.OriginalTokens != 50 {
		t.Fatalf("expected original count 50, got %d", res.OriginalTokens)
	}

	again := b.Optimize(res.Text)
	if again.Truncated || again.Text != res.Text {
		t.Fatalf("optimizing fitted text must be a no-op, got %+v", again)
	}
}

func TestOptimize_DisabledBudget(t *testing.T) {
	b := NewContextBudgeter(wordCounter{}, "m", 0)
	text := strings.Repeat("word ", 500)
	if res := b.Optimize(text); res.Truncated || res.Text != text {
		t.Fatal("budget 0 must not truncate")
	}
}

func TestFit_SerializesCompactJSON(t *testing.T) {
	b := NewContextBudgeter(wordCounter{}, "m", 1000)
	res, err := b.Fit(&model.GenerationContext{HealthConcern: model.ConcernContext{Title: "Back pain"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.Text, "\n") || strings.Contains(res.Text, ": ") {
		t.Fatalf("expected compact JSON, got %q", res.Text)
	}
	if !strings.Contains(res.Text, `"title":"Back pain"`) {
		t.Fatalf("unexpected serialization %q", res.Text)
	}
}
