package rulestore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/openhealth-tools/cardea/internal/domain"
)

// CSVSource reads the rule tables from CSV files, the format the
// original tables ship in. Column order is irrelevant; a header row is
// required. The category column may be named either "category" or
// "disease".
type CSVSource struct {
	HealthRulesPath string
	AdviceRulesPath string
}

// LoadRules reads the scoring rule table. Required columns:
// disease|category, signal, condition, weight. Non-numeric or missing
// weights coerce to 0 rather than failing the load.
func (s *CSVSource) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	rows, header, err := readTable(s.HealthRulesPath)
	if err != nil {
		return nil, err
	}

	category, ok := categoryColumn(header)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing column disease|category", ErrSchema, s.HealthRulesPath)
	}
	for _, col := range []string{"signal", "condition", "weight"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: %s missing column %q", ErrSchema, s.HealthRulesPath, col)
		}
	}

	rules := make([]domain.Rule, 0, len(rows))
	for _, row := range rows {
		weight, err := strconv.ParseFloat(strings.TrimSpace(cell(row, header["weight"])), 64)
		if err != nil {
			weight = 0
		}
		rules = append(rules, domain.Rule{
			Category:  strings.TrimSpace(cell(row, category)),
			Signal:    strings.TrimSpace(cell(row, header["signal"])),
			Condition: strings.TrimSpace(cell(row, header["condition"])),
			Weight:    weight,
		})
	}
	return rules, nil
}

// LoadAdviceRules reads the advice table. Required columns:
// disease|category, condition, advice.
func (s *CSVSource) LoadAdviceRules(ctx context.Context) ([]domain.AdviceRule, error) {
	rows, header, err := readTable(s.AdviceRulesPath)
	if err != nil {
		return nil, err
	}

	category, ok := categoryColumn(header)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing column disease|category", ErrSchema, s.AdviceRulesPath)
	}
	for _, col := range []string{"condition", "advice"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: %s missing column %q", ErrSchema, s.AdviceRulesPath, col)
		}
	}

	rules := make([]domain.AdviceRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, domain.AdviceRule{
			Category:  strings.TrimSpace(cell(row, category)),
			Condition: strings.TrimSpace(cell(row, header["condition"])),
			Advice:    strings.TrimSpace(cell(row, header["advice"])),
		})
	}
	return rules, nil
}

// readTable parses a CSV file into data rows plus a lower-cased
// header index.
func readTable(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening rule table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows; missing cells read empty
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no header row", ErrSchema, path)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return records[1:], header, nil
}

func categoryColumn(header map[string]int) (int, bool) {
	if i, ok := header["disease"]; ok {
		return i, true
	}
	if i, ok := header["category"]; ok {
		return i, true
	}
	return 0, false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
