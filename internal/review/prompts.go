package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/pipeline"
)

// promptRow is the JSON shape of one row sent to the model.
type promptRow struct {
	Row         int      `json:"row"`
	PartNumber  string   `json:"part_number"`
	Description string   `json:"description"`
	Vendor      string   `json:"vendor"`
	Subassembly string   `json:"subassembly"`
	Candidates  []string `json:"candidates"`
}

// buildPrompt asks the model to pick one category per row from the fixed set.
func buildPrompt(rows []pipeline.AmbiguousRow) (string, error) {
	payload := make([]promptRow, len(rows))
	for i, r := range rows {
		candidates := make([]string, len(r.Matched))
		for j, c := range r.Matched {
			candidates[j] = string(c)
		}
		payload[i] = promptRow{
			Row:         r.SheetRow,
			PartNumber:  r.PartNumber,
			Description: r.Description,
			Vendor:      r.Vendor,
			Subassembly: r.Subassembly,
			Candidates:  candidates,
		}
	}
	rowsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("buildPrompt: encoding rows: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are reviewing the bill of materials of a light-sheet microscope rebuild.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Each row below matched keyword rules for more than one category.\n")
	b.WriteString("- For each row, choose the single best category for the purchased component.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n")

	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range domain.Categories {
		b.WriteString("  - " + string(c) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Each output object must have these fields:\n")
	b.WriteString("- \"row\": number, copied from the input\n")
	b.WriteString("- \"category\": string, exactly one of the categories above (case-sensitive)\n")
	b.WriteString("- \"reason\": string, one short sentence\n\n")

	b.WriteString("Rows:\n")
	b.Write(rowsJSON)
	b.WriteString("\n\n")

	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")
	return b.String(), nil
}

// cleanModelJSON strips Markdown fences and surrounding chatter from a model reply,
// keeping the outermost JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
