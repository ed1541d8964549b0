package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile merges a YAML or JSON pricing file over the table.
// On error the table is left unchanged.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pricing file: %w", err)
	}
	var custom fileFormat
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &custom)
	} else {
		err = yaml.Unmarshal(data, &custom)
	}
	if err != nil {
		return fmt.Errorf("parse pricing file %s: %w", path, err)
	}
	if err := validate(custom); err != nil {
		return err
	}
	t.merge(custom)
	return nil
}

// MergeJSON merges an inline JSON override such as PRICING_JSON.
func (t *Table) MergeJSON(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var custom fileFormat
	if err := json.Unmarshal([]byte(raw), &custom); err != nil {
		return fmt.Errorf("parse pricing json: %w", err)
	}
	if err := validate(custom); err != nil {
		return err
	}
	t.merge(custom)
	return nil
}

func validate(custom fileFormat) error {
	for provider, models := range custom.Providers {
		if strings.TrimSpace(provider) == "" {
			return errors.New("pricing: empty provider name")
		}
		for model, p := range models {
			if strings.TrimSpace(model) == "" {
				return fmt.Errorf("pricing: empty model name for provider %s", provider)
			}
			if p.InputPer1K < 0 || p.OutputPer1K < 0 {
				return fmt.Errorf("pricing: negative price for %s/%s", provider, model)
			}
		}
	}
	return nil
}
