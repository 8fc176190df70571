package service

import (
	"encoding/json"

	"healthpulse/internal/model"
)

// TruncationMarker is appended to context cut to fit the budget.
const TruncationMarker = "\n...[context truncated]"

// TokenCounter measures and cuts text in model tokens.
type TokenCounter interface {
	Count(text, model string) int
	Truncate(text string, limit int, model string) (string, bool)
}

// BudgetResult is the serialized context as it will be sent.
type BudgetResult struct {
	Text           string
	Tokens         int
	OriginalTokens int
	Truncated      bool
}

// ContextBudgeter keeps the serialized context within a token budget.
// A budget of zero or less disables truncation.
type ContextBudgeter struct {
	counter TokenCounter
	model   string
	budget  int
}

func NewContextBudgeter(counter TokenCounter, model string, budget int) *ContextBudgeter {
	return &ContextBudgeter{counter: counter, model: model, budget: budget}
}

// Fit serializes the context as compact JSON and optimizes it.
func (b *ContextBudgeter) Fit(gc *model.GenerationContext) (BudgetResult, error) {
	data, err := json.Marshal(gc)
	if err != nil {
		return BudgetResult{}, err
	}
	return b.Optimize(string(data)), nil
}

// Optimize returns text unchanged when it fits. Otherwise it is cut on a
// token boundary, leaving room for TruncationMarker within the budget.
func (b *ContextBudgeter) Optimize(text string) BudgetResult {
	count := b.counter.Count(text, b.model)
	if b.budget <= 0 || count <= b.budget {
		return BudgetResult{Text: text, Tokens: count, OriginalTokens: count}
	}

	keep := b.budget - b.counter.Count(TruncationMarker, b.model)
	if keep < 0 {
		keep = 0
	}
	cut, _ := b.counter.Truncate(text, keep, b.model)
	out := cut + TruncationMarker
	return BudgetResult{
		Text:           out,
		Tokens:         b.counter.Count(out, b.model),
		OriginalTokens: count,
		Truncated:      true,
	}
}
