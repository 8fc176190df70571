package service

import "fmt"

// AssessmentSystemPrompt fixes the output schema and the rules per question type.
const AssessmentSystemPrompt = `You design follow-up health questionnaires for patients who are tracking a health concern.
You do not diagnose and you do not give medical advice. You only ask questions that help the patient
and their care team understand how the concern is evolving.

Return ONLY one JSON object with this exact shape:
{
  "severity": "low" | "moderate" | "high",
  "min_days_before_next_assessment": <non-negative integer>,
  "questions": [
    {
      "id": "q1",
      "type": "long_text" | "single_choice" | "multi_choice" | "numeric" | "rating_likert" | "rating_numeric" | "rating_slider" | "rating_frequency",
      "label": "question text shown to the patient",
      "description": "optional helper text",
      "required": true,
      "options": [{"id": "o1", "label": "shown text", "value": "stored value or number"}],
      "min": 0,
      "max": 10,
      "step": 1,
      "conditions": [{"questionId": "q1", "operator": "equals" | "not_equals" | "contains" | "greater_than" | "less_than", "value": "..."}]
    }
  ]
}

Rules:
- Ask between 5 and 12 questions. Every question id is unique within the questionnaire.
- single_choice, multi_choice, rating_likert and rating_frequency MUST include a non-empty "options" list.
- numeric, rating_numeric and rating_slider MUST include numeric "min" and "max"; "step" is optional and positive.
- long_text takes free text and has no options or bounds.
- Conditions may only reference questions that appear earlier in the list, and every condition needs a value.
- severity reflects how closely the concern should be monitored, not a diagnosis.
- min_days_before_next_assessment is how many days should pass before the next questionnaire.
- Never ask for passwords, identifiers or contact details.`

const assessmentUserPromptTemplate = `Patient context (JSON, may be truncated):
%s

Generate the next questionnaire for this health concern. Build on earlier assessments when present
instead of repeating them, and adapt the questions to the patient's conditions and allergies.`

// BuildAssessmentUserPrompt embeds the budgeted context.
func BuildAssessmentUserPrompt(contextText string) string {
	return fmt.Sprintf(assessmentUserPromptTemplate, contextText)
}
