// Package review asks a language model for a second opinion on rows whose keywords
// matched several category rules. Suggestions are advisory; the document is never changed.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
	"github.com/lightsheet-rebuild/bomtool/internal/pipeline"
)

// Model generates a text reply for a prompt.
// This interface enables mocking of the language model in tests.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Suggestion is the model's category for one flagged row.
type Suggestion struct {
	SheetRow   int             `json:"row"`
	PartNumber string          `json:"partNumber"`
	Vendor     string          `json:"vendor"`
	Current    domain.Category `json:"current"`
	Suggested  domain.Category `json:"suggested"`
	Reason     string          `json:"reason"`
}

// Agrees reports whether the model picked the rule-based category.
func (s Suggestion) Agrees() bool {
	return s.Suggested == s.Current
}

// modelAnswer is one element of the array the model returns.
type modelAnswer struct {
	Row      int    `json:"row"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// Reviewer sends flagged rows to a model in batches.
type Reviewer struct {
	model     Model
	batchSize int
}

// NewReviewer creates a reviewer. batchSize <= 0 sends all rows in one request.
func NewReviewer(model Model, batchSize int) *Reviewer {
	return &Reviewer{model: model, batchSize: batchSize}
}

// Review returns one suggestion per row the model answered with a valid category,
// ordered by sheet row. Answers naming unknown rows or categories are logged and dropped.
func (r *Reviewer) Review(ctx context.Context, rows []pipeline.AmbiguousRow) ([]Suggestion, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	size := r.batchSize
	if size <= 0 {
		size = len(rows)
	}

	var out []Suggestion
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batch, err := r.reviewBatch(ctx, rows[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SheetRow < out[j].SheetRow })
	return out, nil
}

func (r *Reviewer) reviewBatch(ctx context.Context, rows []pipeline.AmbiguousRow) ([]Suggestion, error) {
	log := logger.FromContext(ctx)

	prompt, err := buildPrompt(rows)
	if err != nil {
		return nil, err
	}

	raw, err := r.model.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("reviewBatch: generate content: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("reviewBatch: empty response from model")
	}

	var answers []modelAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &answers); err != nil {
		return nil, fmt.Errorf("reviewBatch: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	bySheetRow := make(map[int]pipeline.AmbiguousRow, len(rows))
	for _, row := range rows {
		bySheetRow[row.SheetRow] = row
	}

	suggestions := make([]Suggestion, 0, len(answers))
	for _, a := range answers {
		row, ok := bySheetRow[a.Row]
		if !ok {
			log.Warn().Int("row", a.Row).Msg("Model answered for a row that was not sent")
			continue
		}
		category, ok := matchCategory(a.Category)
		if !ok {
			log.Warn().Int("row", a.Row).Str("category", a.Category).Msg("Model suggested an unknown category")
			continue
		}
		suggestions = append(suggestions, Suggestion{
			SheetRow:   row.SheetRow,
			PartNumber: row.PartNumber,
			Vendor:     row.Vendor,
			Current:    row.Chosen,
			Suggested:  category,
			Reason:     strings.TrimSpace(a.Reason),
		})
	}
	return suggestions, nil
}

// matchCategory maps a model answer onto the fixed category set, ignoring case.
func matchCategory(name string) (domain.Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range domain.Categories {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}
