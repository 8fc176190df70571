package service

import (
	"fmt"
	"strings"

	"healthpulse/internal/model"
)

// IssueCode identifies one kind of answer problem.
type IssueCode string

const (
	IssueRequiredMissing IssueCode = "required_missing"
	IssueUnknownQuestion IssueCode = "unknown_question"
	IssueTypeMismatch    IssueCode = "type_mismatch"
	IssueInvalidValue    IssueCode = "invalid_value"
	IssueOutOfRange      IssueCode = "out_of_range"
	IssueInvalidOption   IssueCode = "invalid_option"
	IssueUnknownType     IssueCode = "unknown_type"
	IssueDuplicateAnswer IssueCode = "duplicate_answer"
)

type ValidationIssue struct {
	QuestionID string    `json:"questionId"`
	Code       IssueCode `json:"code"`
	Message    string    `json:"message"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// Messages flattens the issues for an error response.
func (r ValidationResult) Messages() []string {
	out := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		out[i] = is.Message
	}
	return out
}

type issueCollector struct {
	issues []ValidationIssue
}

func (c *issueCollector) add(questionID string, code IssueCode, format string, args ...interface{}) {
	c.issues = append(c.issues, ValidationIssue{
		QuestionID: questionID,
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
	})
}

// ValidateAnswers checks answers against the questions of one assessment.
// It never stops at the first problem; every issue is reported. Conditional
// display rules are not evaluated, so a required question stays required.
func ValidateAnswers(answers []model.Answer, questions []model.Question) ValidationResult {
	var c issueCollector

	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID()] = q
	}
	answered := make(map[string]bool, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = true
	}

	for _, q := range questions {
		if q.Required() && !answered[q.ID()] {
			c.add(q.ID(), IssueRequiredMissing, "Question %s is required but was not answered", q.ID())
		}
	}

	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if seen[a.QuestionID] {
			c.add(a.QuestionID, IssueDuplicateAnswer, "Question %s was answered more than once", a.QuestionID)
			continue
		}
		seen[a.QuestionID] = true

		q, ok := byID[a.QuestionID]
		if !ok {
			c.add(a.QuestionID, IssueUnknownQuestion, "Answer provided for unknown question %s", a.QuestionID)
			continue
		}
		if !a.QuestionType.Valid() {
			c.add(a.QuestionID, IssueUnknownType, "Unknown question type %q for question %s", a.QuestionType, a.QuestionID)
			continue
		}
		if a.QuestionType != q.Type() {
			c.add(a.QuestionID, IssueTypeMismatch, "Question %s expects type %s but answer declares %s", q.ID(), q.Type(), a.QuestionType)
			continue
		}
		checkValue(&c, q, a.Value)
	}

	return ValidationResult{Valid: len(c.issues) == 0, Issues: c.issues}
}

func checkValue(c *issueCollector, q model.Question, v model.Value) {
	id := q.ID()
	switch q.Type() {
	case model.QuestionLongText:
		text, ok := v.Text()
		if !ok {
			c.add(id, IssueInvalidValue, "Question %s expects a text answer", id)
			return
		}
		if q.Required() && strings.TrimSpace(text) == "" {
			c.add(id, IssueInvalidValue, "Question %s is required and cannot be blank", id)
		}

	case model.QuestionSingleChoice, model.QuestionRatingLikert, model.QuestionRatingFrequency:
		if !v.IsScalar() {
			c.add(id, IssueInvalidValue, "Question %s expects a single value", id)
			return
		}
		checkOption(c, q, v)

	case model.QuestionMultiChoice:
		items, ok := v.List()
		if !ok {
			c.add(id, IssueInvalidValue, "Question %s expects a list of values", id)
			return
		}
		if q.Required() && len(items) == 0 {
			c.add(id, IssueInvalidValue, "Question %s is required and needs at least one selection", id)
			return
		}
		for _, item := range items {
			if !item.IsScalar() {
				c.add(id, IssueInvalidValue, "Question %s contains a selection that is not a single value", id)
				continue
			}
			checkOption(c, q, item)
		}

	case model.QuestionNumeric, model.QuestionRatingNumeric, model.QuestionRatingSlider:
		n, ok := v.Number()
		if !ok {
			c.add(id, IssueInvalidValue, "Question %s expects a numeric answer", id)
			return
		}
		if b, ok := q.Bounds(); ok && (n < b.Min || n > b.Max) {
			c.add(id, IssueOutOfRange, "Question %s answer %v is outside [%v, %v]", id, n, b.Min, b.Max)
		}

	default:
		c.add(id, IssueUnknownType, "Unknown question type %q for question %s", q.Type(), id)
	}
}

func checkOption(c *issueCollector, q model.Question, v model.Value) {
	if len(q.Options()) == 0 {
		return
	}
	if !q.HasOption(v) {
		c.add(q.ID(), IssueInvalidOption, "Question %s does not offer option %q", q.ID(), v.String())
	}
}
