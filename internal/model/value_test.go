package model

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestValue_UnmarshalJSONKinds(t *testing.T) {
	tests := []struct {
		raw  string
		kind ValueKind
		text string
	}{
		{`"hello"`, ValueText, "hello"},
		{`3`, ValueNumber, "3"},
		{`2.5`, ValueNumber, "2.5"},
		{`true`, ValueBool, "true"},
		{`null`, ValueNull, ""},
		{`["a",1]`, ValueList, `["a",1]`},
	}
	for _, tt := range tests {
		var v Value
		if err := json.Unmarshal([]byte(tt.raw), &v); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if v.Kind() != tt.kind {
			t.Errorf("%s: expected kind %s, got %s", tt.raw, tt.kind, v.Kind())
		}
		if v.String() != tt.text {
			t.Errorf("%s: expected text %q, got %q", tt.raw, tt.text, v.String())
		}
	}
}

func TestValue_RejectsNestedListsAndObjects(t *testing.T) {
	for _, raw := range []string{`[[1]]`, `{"a":1}`} {
		var v Value
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestValue_BSONRoundTrip(t *testing.T) {
	type holder struct {
		V Value `bson:"v"`
	}
	for _, v := range []Value{TextValue("x"), NumberValue(4), BoolValue(false), ListValue(TextValue("a"), NumberValue(2)), {}} {
		data, err := bson.Marshal(holder{V: v})
		if err != nil {
			t.Fatalf("marshal %v: %v", v, err)
		}
		var got holder
		if err := bson.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %v: %v", v, err)
		}
		if got.V.Kind() != v.Kind() || got.V.String() != v.String() {
			t.Errorf("round trip changed %v (%s) into %v (%s)", v, v.Kind(), got.V, got.V.Kind())
		}
	}
}

func TestAssessmentResponse_BSONKeepsNullAnswer(t *testing.T) {
	resp := AssessmentResponse{
		ID:           "r1",
		AssessmentID: "a1",
		Answers: []Answer{
			{QuestionID: "q1", QuestionType: QuestionLongText, Value: Value{}},
			{QuestionID: "q2", QuestionType: QuestionNumeric, Value: NumberValue(3)},
		},
	}
	data, err := bson.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got AssessmentResponse
	if err := bson.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Answers) != 2 || !got.Answers[0].Value.IsNull() {
		t.Fatalf("expected null first answer, got %+v", got.Answers)
	}
	if n, ok := got.Answers[1].Value.Number(); !ok || n != 3 {
		t.Errorf("expected numeric second answer, got %v", got.Answers[1].Value)
	}
}
