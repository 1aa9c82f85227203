package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openclaw/fleet-worker-go/internal/model"
)

// LoadCatalog reads and validates the action catalog at path.
func LoadCatalog(path string) (*model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*model.Catalog, error) {
	var catalog model.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := ValidateCatalog(&catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func ValidateCatalog(c *model.Catalog) error {
	classes := make(map[string]bool, len(c.Quotas))
	for _, q := range c.Quotas {
		if q.Class == "" {
			return fmt.Errorf("quota class must not be empty")
		}
		if classes[q.Class] {
			return fmt.Errorf("duplicate quota class %q", q.Class)
		}
		if q.WindowHours <= 0 {
			return fmt.Errorf("quota class %q: windowHours must be positive", q.Class)
		}
		if q.MaxUses < 0 {
			return fmt.Errorf("quota class %q: maxUses must not be negative", q.Class)
		}
		classes[q.Class] = true
	}

	if len(c.Actions) == 0 {
		return fmt.Errorf("catalog declares no actions")
	}

	codes := make(map[string]bool, len(c.Actions))
	for _, k := range c.Actions {
		if k.Code == "" {
			return fmt.Errorf("action code must not be empty")
		}
		if codes[k.Code] {
			return fmt.Errorf("duplicate action code %q", k.Code)
		}
		codes[k.Code] = true

		if k.Weight < 0 {
			return fmt.Errorf("action %q: weight must not be negative", k.Code)
		}
		if k.Interval.Min < 0 || k.Interval.Max < k.Interval.Min {
			return fmt.Errorf("action %q: invalid interval [%d, %d]", k.Code, k.Interval.Min, k.Interval.Max)
		}
		if k.QuotaClass != "" && !classes[k.QuotaClass] {
			return fmt.Errorf("action %q: unknown quota class %q", k.Code, k.QuotaClass)
		}
	}
	return nil
}
