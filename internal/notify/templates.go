package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/jonathan/screening-agent/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"score": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).ParseFS(templateFS, "templates/*.html"))

// Company identifies the sender organization in email bodies.
type Company struct {
	Name         string
	SupportEmail string
	SupportPhone string
	Website      string
}

type resultView struct {
	Name          string
	Scores        types.Scores
	PassThreshold int
	Company       Company
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// ResultEmail builds the candidate-facing result email.
func ResultEmail(company Company, notice types.ResultNotice) (Email, error) {
	view := resultView{
		Name:          notice.Name,
		Scores:        notice.Scores,
		PassThreshold: int(types.PassThreshold),
		Company:       company,
	}

	name := "rejection.html"
	subject := fmt.Sprintf("Resultado de tu Evaluación - %s", company.Name)
	if notice.Passed {
		name = "approval.html"
		subject = fmt.Sprintf("¡Felicitaciones! Has aprobado - %s", company.Name)
	}

	body, err := render(name, view)
	if err != nil {
		return Email{}, err
	}
	return Email{To: notice.Email, Subject: subject, HTML: body}, nil
}

// HRAlertEmail builds the recruiter alert for a passed candidate.
func HRAlertEmail(to string, alert types.HRAlert) (Email, error) {
	body, err := render("hr_alert.html", alert)
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Nuevo Prospecto Aprobado: %s - %s", alert.ProspectName, alert.PositionTitle),
		HTML:    body,
	}, nil
}
