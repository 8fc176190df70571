package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionLongText        QuestionType = "long_text"
	QuestionSingleChoice    QuestionType = "single_choice"
	QuestionMultiChoice     QuestionType = "multi_choice"
	QuestionNumeric         QuestionType = "numeric"
	QuestionRatingLikert    QuestionType = "rating_likert"
	QuestionRatingNumeric   QuestionType = "rating_numeric"
	QuestionRatingSlider    QuestionType = "rating_slider"
	QuestionRatingFrequency QuestionType = "rating_frequency"
)

// AllQuestionTypes lists every supported type in prompt order.
var AllQuestionTypes = []QuestionType{
	QuestionLongText, QuestionSingleChoice, QuestionMultiChoice, QuestionNumeric,
	QuestionRatingLikert, QuestionRatingNumeric, QuestionRatingSlider, QuestionRatingFrequency,
}

// QuestionShape groups question types by the constraint they carry.
type QuestionShape int

const (
	ShapeUnknown QuestionShape = iota
	ShapeText                  // free text
	ShapeChoice                // requires options
	ShapeScale                 // requires min/max
)

func (t QuestionType) Shape() QuestionShape {
	switch t {
	case QuestionLongText:
		return ShapeText
	case QuestionSingleChoice, QuestionMultiChoice, QuestionRatingLikert, QuestionRatingFrequency:
		return ShapeChoice
	case QuestionNumeric, QuestionRatingNumeric, QuestionRatingSlider:
		return ShapeScale
	default:
		return ShapeUnknown
	}
}

func (t QuestionType) Valid() bool {
	return t.Shape() != ShapeUnknown
}

// Option is one selectable answer. Value is text or number.
type Option struct {
	ID    string `json:"id" bson:"id"`
	Label string `json:"label" bson:"label"`
	Value Value  `json:"value" bson:"value"`
}

type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
)

func (o ConditionOperator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}

// Condition drives conditional display of a question.
type Condition struct {
	QuestionID string            `json:"questionId" bson:"questionId"`
	Operator   ConditionOperator `json:"operator" bson:"operator"`
	Value      Value             `json:"value" bson:"value"`
}

// Bounds are the numeric constraints of a scale question.
type Bounds struct {
	Min  float64
	Max  float64
	Step *float64
}

// QuestionHeader holds the fields shared by every question variant.
type QuestionHeader struct {
	ID          string
	Label       string
	Description string
	Required    bool
	Conditions  []Condition
}

// Question is one generated question. It is a tagged union keyed by Type:
// choice variants always carry options and scale variants always carry
// bounds. Build one with NewLongText, NewChoice or NewScale; decoding goes
// through the same checks.
type Question struct {
	header QuestionHeader
	qtype  QuestionType
	opts   []Option
	bounds *Bounds
}

func NewLongText(h QuestionHeader) (Question, error) {
	if err := h.validate(); err != nil {
		return Question{}, err
	}
	return Question{header: h, qtype: QuestionLongText}, nil
}

func NewChoice(t QuestionType, h QuestionHeader, options []Option) (Question, error) {
	if t.Shape() != ShapeChoice {
		return Question{}, fmt.Errorf("question %q: %s is not a choice type", h.ID, t)
	}
	if err := h.validate(); err != nil {
		return Question{}, err
	}
	if len(options) == 0 {
		return Question{}, fmt.Errorf("question %q: %s requires at least one option", h.ID, t)
	}
	for i, o := range options {
		if !o.Value.IsScalar() {
			return Question{}, fmt.Errorf("question %q: option %d must have a text or numeric value", h.ID, i)
		}
	}
	return Question{header: h, qtype: t, opts: append([]Option{}, options...)}, nil
}

func NewScale(t QuestionType, h QuestionHeader, b Bounds) (Question, error) {
	if t.Shape() != ShapeScale {
		return Question{}, fmt.Errorf("question %q: %s is not a scale type", h.ID, t)
	}
	if err := h.validate(); err != nil {
		return Question{}, err
	}
	if b.Min > b.Max {
		return Question{}, fmt.Errorf("question %q: min %v exceeds max %v", h.ID, b.Min, b.Max)
	}
	if b.Step != nil && *b.Step <= 0 {
		return Question{}, fmt.Errorf("question %q: step must be positive", h.ID)
	}
	return Question{header: h, qtype: t, bounds: &b}, nil
}

func (h QuestionHeader) validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return fmt.Errorf("question id is required")
	}
	if strings.TrimSpace(h.Label) == "" {
		return fmt.Errorf("question %q: label is required", h.ID)
	}
	for _, c := range h.Conditions {
		if c.QuestionID == "" {
			return fmt.Errorf("question %q: condition is missing questionId", h.ID)
		}
		if !c.Operator.Valid() {
			return fmt.Errorf("question %q: unknown condition operator %q", h.ID, c.Operator)
		}
		if c.Value.IsNull() {
			return fmt.Errorf("question %q: condition on %q is missing a value", h.ID, c.QuestionID)
		}
	}
	return nil
}

func (q Question) ID() string { return q.header.ID }
func (q Question) Type() QuestionType { return q.qtype }
func (q Question) Label() string { return q.header.Label }
func (q Question) Description() string { return q.header.Description }
func (q Question) Required() bool { return q.header.Required }
func (q Question) Conditions() []Condition { return q.header.Conditions }
func (q Question) Header() QuestionHeader { return q.header }
func (q Question) Options() []Option { return q.opts }
func (q Question) Bounds() (Bounds, bool) {
	if q.bounds == nil {
		return Bounds{}, false
	}
	return *q.bounds, true
}

// HasOption reports whether any option value matches v, compared as text.
func (q Question) HasOption(v Value) bool {
	s := v.String()
	for _, o := range q.opts {
		if o.Value.String() == s {
			return true
		}
	}
	return false
}

// questionDoc is the flat wire form shared by storage, the API and the LLM output.
type questionDoc struct {
	ID          string       `json:"id" bson:"id"`
	Type        QuestionType `json:"type" bson:"type"`
	Label       string       `json:"label" bson:"label"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Required    bool         `json:"required" bson:"required"`
	Options     []Option     `json:"options,omitempty" bson:"options,omitempty"`
	Min         *float64     `json:"min,omitempty" bson:"min,omitempty"`
	Max         *float64     `json:"max,omitempty" bson:"max,omitempty"`
	Step        *float64     `json:"step,omitempty" bson:"step,omitempty"`
	Conditions  []Condition  `json:"conditions,omitempty" bson:"conditions,omitempty"`
}

func (q Question) toDoc() questionDoc {
	d := questionDoc{
		ID:          q.header.ID,
		Type:        q.qtype,
		Label:       q.header.Label,
		Description: q.header.Description,
		Required:    q.header.Required,
		Options:     q.opts,
		Conditions:  q.header.Conditions,
	}
	if q.bounds != nil {
		min, max := q.bounds.Min, q.bounds.Max
		d.Min, d.Max, d.Step = &min, &max, q.bounds.Step
	}
	return d
}

func (d questionDoc) toQuestion() (Question, error) {
	h := QuestionHeader{
		ID:          d.ID,
		Label:       d.Label,
		Description: d.Description,
		Required:    d.Required,
		Conditions:  d.Conditions,
	}
	switch d.Type.Shape() {
	case ShapeText:
		return NewLongText(h)
	case ShapeChoice:
		return NewChoice(d.Type, h, d.Options)
	case ShapeScale:
		if d.Min == nil || d.Max == nil {
			return Question{}, fmt.Errorf("question %q: %s requires min and max", d.ID, d.Type)
		}
		return NewScale(d.Type, h, Bounds{Min: *d.Min, Max: *d.Max, Step: d.Step})
	default:
		return Question{}, fmt.Errorf("question %q: unknown question type %q", d.ID, d.Type)
	}
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.toDoc())
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var d questionDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := d.toQuestion()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func (q Question) MarshalBSON() ([]byte, error) {
	return bson.Marshal(q.toDoc())
}

func (q *Question) UnmarshalBSON(data []byte) error {
	var d questionDoc
	if err := bson.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := d.toQuestion()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
