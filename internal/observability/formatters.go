// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/screening-agent/internal/seed"
	"github.com/jonathan/screening-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the number of questions listed per test
	maxItemsToShow = 5
	// maxQuestionRunes bounds question text in listings
	maxQuestionRunes = 48
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip truncates s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintCatalog outputs one box per position of a seed catalog followed by the totals.
func (p *Printer) PrintCatalog(entries []seed.Entry) {
	questions := 0
	for i := range entries {
		p.PrintPosition(&entries[i])
		questions += len(entries[i].Questions)
	}
	p.printBox("CATALOG", fmt.Sprintf("Positions: %d\nQuestions: %d", len(entries), questions))
}

// PrintPosition outputs a position with its questions grouped by test.
func (p *Printer) PrintPosition(e *seed.Entry) {
	if e == nil {
		return
	}

	var sb strings.Builder
	status := "active"
	if !e.Active {
		status = "inactive"
	}
	sb.WriteString(fmt.Sprintf("Salary:   %s %.2f\n", e.Position.Currency, e.Position.Salary))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", status))
	sb.WriteString(fmt.Sprintf("ID:       %s\n", e.Position.ID))

	for test := 1; test <= 2; test++ {
		var qs []types.Question
		for _, q := range e.Questions {
			if q.TestNumber == test {
				qs = append(qs, q)
			}
		}
		if len(qs) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("\nTest %d (%d questions):\n", test, len(qs)))
		count := min(len(qs), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(questionLine(&qs[i]))
		}
		if len(qs) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(qs)-maxItemsToShow))
		}
	}

	p.printBox(strings.ToUpper(e.Position.Title), strings.TrimSuffix(sb.String(), "\n"))
}

func questionLine(q *types.Question) string {
	detail := string(q.ValidationType)
	switch q.ValidationType {
	case types.ValidationSemantic:
		detail = fmt.Sprintf("%s ≥%.2f", detail, q.Threshold())
	case types.ValidationKeyword:
		detail = fmt.Sprintf("%s %d kw", detail, len(q.ExpectedKeywords))
	}
	if q.Weight != 1 {
		detail = fmt.Sprintf("%s w%.1f", detail, q.Weight)
	}
	marker := "•"
	if !q.Active {
		marker = "○"
	}
	return fmt.Sprintf("  %s %d. %s [%s]\n", marker, q.Order, clip(q.Text, maxQuestionRunes), detail)
}
