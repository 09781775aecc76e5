// Package seed loads the position and question catalog from YAML files.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/screening-agent/internal/types"
	"gopkg.in/yaml.v3"
)

// namespace derives stable ids so reseeding a file updates rows in place.
var namespace = uuid.MustParse("6f1f3b1c-4c8e-4d3a-9b62-0c8f5a6d2e71")

// File is the YAML catalog layout.
type File struct {
	Positions []PositionSpec `yaml:"positions" validate:"required,min=1,dive"`
}

// PositionSpec describes one position and its questions.
type PositionSpec struct {
	// Key identifies the position across reseeds; defaults to the title.
	Key         string         `yaml:"key"`
	Title       string         `yaml:"title" validate:"required"`
	Description string         `yaml:"description"`
	Salary      float64        `yaml:"salary" validate:"min=0"`
	Currency    string         `yaml:"currency" validate:"omitempty,len=3"`
	Active      *bool          `yaml:"active"`
	Questions   []QuestionSpec `yaml:"questions" validate:"dive"`
}

// QuestionSpec describes one question template.
type QuestionSpec struct {
	Test          int      `yaml:"test" validate:"oneof=1 2"`
	Order         int      `yaml:"order" validate:"min=1"`
	Text          string   `yaml:"text" validate:"required"`
	Type          string   `yaml:"type" validate:"oneof=semantic keyword boolean numeric"`
	Keywords      []string `yaml:"keywords"`
	IdealAnswer   string   `yaml:"ideal_answer"`
	MinSimilarity float64  `yaml:"min_similarity" validate:"min=0,max=1"`
	Weight        *float64 `yaml:"weight" validate:"omitempty,gt=0"`
	Active        *bool    `yaml:"active"`
}

// Entry is a position ready to be written with its questions.
type Entry struct {
	Position  types.Position
	Active    bool
	Questions []types.Question
}

var validate = validator.New()

// Parse decodes and validates a catalog.
func Parse(data []byte) ([]Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("seed: catalog is empty")
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("seed: decode catalog: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("seed: invalid catalog: %w", err)
	}
	return f.entries()
}

// LoadFile reads and parses a catalog file.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

func (f File) entries() ([]Entry, error) {
	keys := make(map[string]bool, len(f.Positions))
	out := make([]Entry, 0, len(f.Positions))

	for _, ps := range f.Positions {
		key := ps.Key
		if key == "" {
			key = ps.Title
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if keys[key] {
			return nil, fmt.Errorf("seed: duplicate position %q", key)
		}
		keys[key] = true

		currency := ps.Currency
		if currency == "" {
			currency = "USD"
		}
		entry := Entry{
			Position: types.Position{
				ID:          uuid.NewSHA1(namespace, []byte("position:"+key)),
				Title:       strings.TrimSpace(ps.Title),
				Description: strings.TrimSpace(ps.Description),
				Salary:      ps.Salary,
				Currency:    strings.ToUpper(currency),
			},
			Active: ps.Active == nil || *ps.Active,
		}

		slots := make(map[[2]int]bool, len(ps.Questions))
		for _, qs := range ps.Questions {
			slot := [2]int{qs.Test, qs.Order}
			if slots[slot] {
				return nil, fmt.Errorf("seed: %s: duplicate question test %d order %d", ps.Title, qs.Test, qs.Order)
			}
			slots[slot] = true

			q, err := qs.question(entry.Position.ID)
			if err != nil {
				return nil, fmt.Errorf("seed: %s: test %d question %d: %w", ps.Title, qs.Test, qs.Order, err)
			}
			entry.Questions = append(entry.Questions, q)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (qs QuestionSpec) question(positionID uuid.UUID) (types.Question, error) {
	vt := types.ValidationType(qs.Type)
	switch {
	case vt == types.ValidationKeyword && len(qs.Keywords) == 0:
		return types.Question{}, fmt.Errorf("keyword question needs keywords")
	case vt == types.ValidationSemantic && strings.TrimSpace(qs.IdealAnswer) == "":
		return types.Question{}, fmt.Errorf("semantic question needs an ideal answer")
	}

	weight := 1.0
	if qs.Weight != nil {
		weight = *qs.Weight
	}
	return types.Question{
		ID:               uuid.NewSHA1(positionID, []byte(fmt.Sprintf("question:%d:%d", qs.Test, qs.Order))),
		PositionID:       positionID,
		Text:             strings.TrimSpace(qs.Text),
		TestNumber:       qs.Test,
		Order:            qs.Order,
		ValidationType:   vt,
		ExpectedKeywords: qs.Keywords,
		IdealAnswer:      strings.TrimSpace(qs.IdealAnswer),
		MinSimilarity:    qs.MinSimilarity,
		Weight:           weight,
		Active:           qs.Active == nil || *qs.Active,
	}, nil
}

// Writer persists catalog rows.
type Writer interface {
	UpsertPosition(ctx context.Context, p *types.Position, active bool) error
	UpsertQuestion(ctx context.Context, q *types.Question) error
}

// Summary counts what Apply wrote.
type Summary struct {
	Positions int
	Questions int
}

// Apply upserts every position and question.
func Apply(ctx context.Context, w Writer, entries []Entry) (Summary, error) {
	var sum Summary
	for i := range entries {
		e := &entries[i]
		if err := w.UpsertPosition(ctx, &e.Position, e.Active); err != nil {
			return sum, fmt.Errorf("failed to upsert position %q: %w", e.Position.Title, err)
		}
		sum.Positions++

		for j := range e.Questions {
			if err := w.UpsertQuestion(ctx, &e.Questions[j]); err != nil {
				return sum, fmt.Errorf("failed to upsert question %d/%d of %q: %w",
					e.Questions[j].TestNumber, e.Questions[j].Order, e.Position.Title, err)
			}
			sum.Questions++
		}
	}
	return sum, nil
}
