package workflow

import (
	"testing"

	"github.com/jonathan/screening-agent/internal/progress"
	"github.com/jonathan/screening-agent/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestMatchPosition(t *testing.T) {
	positions := []types.Position{
		{Title: "Senior Backend Developer"},
		{Title: "Backend"},
		{Title: "Data Analyst"},
		{Title: "2"},
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"index", "1", "Senior Backend Developer"},
		{"index wins over title", "4", "2"},
		{"index with spaces", "  3 ", "Data Analyst"},
		{"exact beats substring", "backend", "Backend"},
		{"exact case insensitive", "DATA ANALYST", "Data Analyst"},
		{"substring", "senior back", "Senior Backend Developer"},
		{"word overlap", "developer senior java", "Senior Backend Developer"},
		{"single word substring", "analyst", "Data Analyst"},
		{"no match", "astronaut pilot", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchPosition(tt.input, positions)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, got.Title)
			}
		})
	}
}

func TestMatchPosition_OutOfRangeNumber(t *testing.T) {
	positions := []types.Position{{Title: "Backend"}, {Title: "Frontend"}}
	assert.Nil(t, matchPosition("7", positions))
	assert.Nil(t, matchPosition("0", positions))
}

func TestGreetingMessage(t *testing.T) {
	msg := greetingMessage([]types.Position{
		{Title: "Backend Developer", Salary: 3500, Currency: "USD", Description: "APIs en Go"},
		{Title: "QA", Salary: 1200.5, Currency: "PEN"},
	})

	assert.Contains(t, msg, "Bienvenido al proceso de selección.")
	assert.Contains(t, msg, "1. Backend Developer\n   Salario: USD 3500.0\n   APIs en Go\n")
	assert.Contains(t, msg, "2. QA\n   Salario: PEN 1200.5\n\n")
	assert.Contains(t, msg, "Escribe el número o nombre de la posición que te interesa.")
}

func cursor(test, question int) progress.Cursor {
	return progress.Cursor{Test: test, Question: question}
}

func TestQuestionMessage(t *testing.T) {
	assert.Equal(t, "Pregunta 2/4: ¿Por qué?", questionMessage("Ana", cursor(1, 2), 4, "¿Por qué?"))
	assert.Contains(t, questionMessage("Ana", cursor(1, 1), 4, "x"), "Hola Ana, comenzaremos con el Test 1.")
	assert.Contains(t, questionMessage("Ana", cursor(2, 1), 2, "x"), "Excelente. Ahora el Test 2.")
}

func TestFinalMessage(t *testing.T) {
	msg := finalMessage(types.Scores{Test1: 80, Test2: 60.555, Total: 70.2775}, true)
	assert.Contains(t, msg, "Test 2: 60.55/100")
	assert.Contains(t, msg, "Resultado: APROBADO")

	assert.Contains(t, finalMessage(types.Scores{}, false), "Resultado: NO APROBADO")
}
