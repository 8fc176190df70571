package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"healthpulse/internal/model"
)

// ErrMalformedOutput marks generator output that does not match the schema.
var ErrMalformedOutput = errors.New("malformed generator output")

// GeneratedAssessment is the validated content of one generator reply.
type GeneratedAssessment struct {
	Severity  model.Severity
	MinDays   int
	Questions []model.Question
}

type rawAssessment struct {
	Severity  *string           `json:"severity"`
	MinDays   *json.Number      `json:"min_days_before_next_assessment"`
	Questions []json.RawMessage `json:"questions"`
}

type rawQuestionHead struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedOutput, fmt.Sprintf(format, args...))
}

// ParseGeneratedAssessment validates raw generator output. The whole reply
// is rejected on the first violation; nothing is partially accepted.
func ParseGeneratedAssessment(raw string) (*GeneratedAssessment, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, malformed("empty output")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var ra rawAssessment
	if err := dec.Decode(&ra); err != nil {
		return nil, malformed("not a JSON object: %v", err)
	}
	if dec.More() {
		return nil, malformed("trailing data after JSON object")
	}

	if ra.Severity == nil {
		return nil, malformed("severity is missing")
	}
	severity := model.Severity(strings.ToLower(strings.TrimSpace(*ra.Severity)))
	if !severity.Valid() {
		return nil, malformed("severity %q is not one of low, moderate, high", *ra.Severity)
	}

	if ra.MinDays == nil {
		return nil, malformed("min_days_before_next_assessment is missing")
	}
	minDays, err := nonNegativeInt(*ra.MinDays)
	if err != nil {
		return nil, malformed("min_days_before_next_assessment: %v", err)
	}

	if len(ra.Questions) == 0 {
		return nil, malformed("questions must be a non-empty array")
	}
	questions := make([]model.Question, 0, len(ra.Questions))
	seen := make(map[string]bool, len(ra.Questions))
	for i, rq := range ra.Questions {
		var head rawQuestionHead
		if err := json.Unmarshal(rq, &head); err != nil {
			return nil, malformed("question %d is not an object: %v", i, err)
		}
		if head.ID == "" || head.Type == "" || head.Label == "" {
			return nil, malformed("question %d must have id, type and label", i)
		}
		if seen[head.ID] {
			return nil, malformed("question id %q is repeated", head.ID)
		}
		seen[head.ID] = true

		var q model.Question
		if err := json.Unmarshal(rq, &q); err != nil {
			return nil, malformed("question %d: %v", i, err)
		}
		questions = append(questions, q)
	}

	return &GeneratedAssessment{
		Severity:  severity,
		MinDays:   minDays,
		Questions: questions,
	}, nil
}

func nonNegativeInt(n json.Number) (int, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", n)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("%s is not a non-negative integer", n)
	}
	return int(f), nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
