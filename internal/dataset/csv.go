package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// #region columns
var exportColumns = []string{
	"build_id",
	"attempt",
	"theme",
	"input_char_len",
	"input_word_count",
	"css_density_spacing",
	"css_density_layout",
	"pathological_score",
	"theme_id",
	"active_strategy_id",
	"strategy_id",
	"approved",
	"reason",
	"overrides_json",
	"resolved_strategy_id",
	"created_at",
}
// #endregion columns

// #region export
// Export writes every stored record as CSV in the current schema.
func (s *Store) Export(w io.Writer) error {
	records, err := s.All()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		overridesJSON, err := json.Marshal(rec.Overrides)
		if err != nil {
			return fmt.Errorf("marshal overrides: %w", err)
		}
		row := []string{
			rec.BuildID,
			strconv.Itoa(rec.Attempt),
			rec.Theme,
			strconv.Itoa(rec.Features.CharLen),
			strconv.Itoa(rec.Features.WordCount),
			strconv.Itoa(rec.Features.DensitySpacing),
			strconv.Itoa(rec.Features.DensityLayout),
			strconv.FormatFloat(rec.Features.PathologicalScore, 'f', -1, 64),
			strconv.Itoa(rec.Features.ThemeID),
			strconv.Itoa(rec.Features.StrategyID),
			strconv.Itoa(int(rec.Strategy)),
			strconv.Itoa(boolToInt(rec.Approved)),
			rec.Reason,
			string(overridesJSON),
			strconv.Itoa(int(rec.ResolvedStrategy)),
			rec.CreatedAt.Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
// #endregion export

// #region import
// Import reads CSV rows into the store, accepting both the current
// schema and the legacy version-1 layout. Version 1 carried an is_valid
// flag instead of resolved_strategy_id; on import, a valid row is
// relabeled with its own applied strategy and an invalid row becomes
// Unresolved. Unknown columns are ignored and missing optional columns
// default to zero values.
func (s *Store) Import(r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	if _, ok := col["build_id"]; !ok {
		return 0, fmt.Errorf("import: missing build_id column")
	}

	_, legacy := col["is_valid"]
	if !legacy {
		if _, ok := col["resolved_strategy_id"]; !ok {
			return 0, fmt.Errorf("import: neither resolved_strategy_id nor is_valid present")
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	imported := 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		rec := Record{
			BuildID:  field(row, "build_id"),
			Attempt:  atoi(field(row, "attempt")),
			Theme:    field(row, "theme"),
			Strategy: strategy.Strategy(atoi(field(row, "strategy_id"))),
			Approved: atoi(field(row, "approved")) != 0,
			Reason:   field(row, "reason"),
		}
		rec.Features.CharLen = atoi(field(row, "input_char_len"))
		rec.Features.WordCount = atoi(field(row, "input_word_count"))
		rec.Features.DensitySpacing = atoi(field(row, "css_density_spacing"))
		rec.Features.DensityLayout = atoi(field(row, "css_density_layout"))
		rec.Features.PathologicalScore = atof(field(row, "pathological_score"))
		rec.Features.ThemeID = atoi(field(row, "theme_id"))
		rec.Features.StrategyID = atoi(field(row, "active_strategy_id"))

		if raw := field(row, "overrides_json"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &rec.Overrides); err != nil {
				return imported, fmt.Errorf("row %d: unmarshal overrides: %w", line, err)
			}
		}
		if raw := field(row, "created_at"); raw != "" {
			rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, raw)
		}

		resolved := strategy.Unresolved
		if legacy {
			if atoi(field(row, "is_valid")) != 0 {
				resolved = rec.Strategy
			}
		} else {
			resolved = strategy.Strategy(atoi(field(row, "resolved_strategy_id")))
		}

		if _, err := s.Append(rec); err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		if err := s.Resolve(rec.BuildID, resolved); err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		imported++
	}
	return imported, nil
}
// #endregion import

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
