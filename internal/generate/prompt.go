package generate

import (
	"fmt"

	"github.com/dgallion1/docquiz/internal/question"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// SystemPrompt fixes the model's behaviour for every unit.
const SystemPrompt = `You are an educational assistant.
Generate a quiz ONLY from the provided notes.
Do not invent facts.
Use clear wording suitable for students.
Return ONLY valid JSON that matches the schema.`

// SchemaName names the structured response format.
const SchemaName = "quiz_question"

// UserPrompt asks for one question at the given difficulty over a unit of
// notes.
func UserPrompt(difficulty question.Difficulty, notes string) string {
	return fmt.Sprintf("Create one multiple choice, %s-difficulty question based on these notes: %s", difficulty, notes)
}

// QuestionSchema is the strict JSON schema every response must match. Its
// property names are the question record's JSON field names.
func QuestionSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"question": {
				Type:        jsonschema.String,
				Description: "The quiz question generated from the notes",
			},
			"choices": {
				Type:        jsonschema.Array,
				Items:       &jsonschema.Definition{Type: jsonschema.String},
				Description: fmt.Sprintf("Exactly %d distinct multiple-choice answer options", question.OptionCount),
			},
			"correct_answer": {
				Type:        jsonschema.String,
				Description: "The correct answer, which must exactly match one of the choices",
			},
			"explanation": {
				Type:        jsonschema.String,
				Description: "A brief explanation of why the correct answer is correct",
			},
		},
		Required:             []string{"question", "choices", "correct_answer", "explanation"},
		AdditionalProperties: false,
	}
}
