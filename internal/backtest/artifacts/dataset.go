package artifacts

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sawpanic/ivcrush/internal/backtest"
)

// LoadDataset reads events from a JSON array or from JSONL (one event per
// line)
func LoadDataset(path string) (backtest.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// ParseDataset decodes and checks a dataset
func ParseDataset(data []byte) (backtest.Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	var ds backtest.Dataset
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &ds); err != nil {
			return nil, fmt.Errorf("failed to decode dataset: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			raw := bytes.TrimSpace(scanner.Bytes())
			if len(raw) == 0 {
				continue
			}
			var ev backtest.Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			ds = append(ds, ev)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
	}

	for i, ev := range ds {
		if ev.Symbol == "" {
			return nil, fmt.Errorf("event %d: missing symbol", i)
		}
		if ev.Date.IsZero() {
			return nil, fmt.Errorf("event %d (%s): missing date", i, ev.Symbol)
		}
		if !(ev.Price > 0) {
			return nil, fmt.Errorf("event %d (%s): price %.2f must be positive", i, ev.Symbol, ev.Price)
		}
	}
	return ds, nil
}

// SaveDataset writes a dataset as indented JSON
func SaveDataset(ds backtest.Dataset, path string) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	return nil
}
