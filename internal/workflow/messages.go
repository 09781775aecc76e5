package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/screening-agent/internal/progress"
	"github.com/jonathan/screening-agent/internal/types"
)

// Candidate-facing texts.
const (
	msgNoPositions       = "No hay posiciones activas."
	msgPositionNotFound  = "No encontré esa posición. Ingresa el número o nombre exacto."
	msgRequestCV         = "Por favor, sube tu CV en formato PDF."
	msgProspectMissing   = "Error: No se encontró información del prospecto"
	msgConfirmed         = "Perfecto. Ahora crearemos tu evaluación."
	msgRejectedData      = "Corrige los datos y vuelve a subir tu CV."
	msgConfirmUnclear    = "No entendí. Por favor responde 'Sí' o 'No'."
	msgNotConfirmed      = "Error: Datos no confirmados."
	msgNoProspect        = "Error: No hay prospecto."
	msgNoPosition        = "Error: No hay posición."
	msgNoQuestions       = "Error: No hay preguntas configuradas."
	msgStartTest         = "Perfecto. Iniciemos con el Test 1.\n\nEscribe 'Listo' para comenzar."
	msgAwaitReady        = "Escribe 'Listo' cuando estés preparado."
	msgNoEvaluation      = "Error: No se pudo recuperar el ID de evaluación."
	msgQuestionMissing   = "Error: No se pudo cargar la pregunta."
	msgDefaultPosition   = "Posición"
	msgRecoveredPosition = "Sesión recuperada. Por favor selecciona una posición."
	msgRecoveredStart    = "Sesión activa. Escribe 'Listo' cuando estés preparado para comenzar el test."
	msgRecoveredDefault  = "Sesión activa. Continúa donde lo dejaste."
)

const maxDescriptionRunes = 150

func greetingMessage(positions []types.Position) string {
	var b strings.Builder
	b.WriteString("Bienvenido al proceso de selección.\n\nPosiciones disponibles:\n\n")
	for i, p := range positions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Title)
		fmt.Fprintf(&b, "   Salario: %s %s\n", p.Currency, formatSalary(p.Salary))
		if p.Description != "" {
			fmt.Fprintf(&b, "   %s\n", truncateRunes(p.Description, maxDescriptionRunes))
		}
		b.WriteString("\n")
	}
	b.WriteString("Escribe el número o nombre de la posición que te interesa.")
	return b.String()
}

func formatSalary(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%.1f", v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func positionSelectedMessage(title string) string {
	return fmt.Sprintf("Has seleccionado: %s.\n\nPerfecto, ahora necesito tu CV.", title)
}

func extractedDataMessage(p *types.Prospect) string {
	var b strings.Builder
	b.WriteString("Datos extraídos de tu CV:\n\n")
	fmt.Fprintf(&b, "Nombre: %s\n", p.FullName())
	fmt.Fprintf(&b, "Email: %s\n", p.Email)
	fmt.Fprintf(&b, "Teléfono: %s\n\n", p.Phone)
	b.WriteString("¿Los datos son correctos? (Sí/No)")
	return b.String()
}

func resumeMessage(c progress.Cursor) string {
	return fmt.Sprintf("Continuando evaluación en Test %d, Pregunta %d.", c.Test, c.Question)
}

func abandonedMessage(minutes int) string {
	return fmt.Sprintf("Evaluación abandonada (%d min de inactividad)", minutes)
}

func announceMessage(c progress.Cursor) string {
	if c == progress.Start {
		return msgStartTest
	}
	return fmt.Sprintf("Continuando Test %d, Pregunta %d.\n\nEscribe 'Listo' para continuar.", c.Test, c.Question)
}

func questionMessage(name string, c progress.Cursor, total int, text string) string {
	line := fmt.Sprintf("Pregunta %d/%d: %s", c.Question, total, text)
	switch {
	case c.Test == progress.TechnicalTest && c.Question == 1:
		return fmt.Sprintf("Hola %s, comenzaremos con el Test 1.\n\n%s", name, line)
	case c.Test == progress.TransversalTest && c.Question == 1:
		return "Excelente. Ahora el Test 2.\n\n" + line
	default:
		return line
	}
}

func finalMessage(s types.Scores, passed bool) string {
	verdict := "NO APROBADO"
	if passed {
		verdict = "APROBADO"
	}
	return fmt.Sprintf("Evaluación completada.\n\nTest 1: %.2f/100\nTest 2: %.2f/100\nTotal: %.2f/100\n\nResultado: %s\n\nRecibirás un email con los detalles.\nGracias.",
		s.Test1, s.Test2, s.Total, verdict)
}
