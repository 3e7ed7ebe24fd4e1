package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/DevTigeer/ClosetConnectProject/internal/models"
)

// Policy holds the hand-tuned domain tables: which labels outrank which
// when choosing the primary item, and how labels map to app
// categories. Both are data, not logic, and can be overridden from a
// JSON file.
type Policy struct {
	PriorityOrder   []string                   `json:"priorityOrder"`
	CategoryMapping map[string]models.Category `json:"categoryMapping"`
}

// DefaultPolicy returns the built-in tables. Full outfits outrank
// upper garments, which outrank lower garments, footwear and
// accessories; the mapping covers every clothing-related label the
// segmentation collaborator can emit.
func DefaultPolicy() Policy {
	return Policy{
		PriorityOrder: []string{
			"dress",
			"upper-clothes",
			"pants",
			"skirt",
			"shoes",
			"left-shoe",
			"right-shoe",
			"bag",
			"hat",
			"scarf",
		},
		CategoryMapping: map[string]models.Category{
			"upper-clothes": models.CategoryTop,
			"dress":         models.CategoryTop,
			"pants":         models.CategoryBottom,
			"skirt":         models.CategoryBottom,
			"shoes":         models.CategoryShoes,
			"left-shoe":     models.CategoryShoes,
			"right-shoe":    models.CategoryShoes,
			"hat":           models.CategoryAcc,
			"bag":           models.CategoryAcc,
			"scarf":         models.CategoryAcc,
		},
	}
}

// LoadPolicy reads overrides from a JSON file. Fields left empty in the
// file keep their defaults. An empty path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read policy file: %w", err)
	}

	var override Policy
	if err := json.Unmarshal(raw, &override); err != nil {
		return p, fmt.Errorf("failed to parse policy file: %w", err)
	}

	if len(override.PriorityOrder) > 0 {
		p.PriorityOrder = override.PriorityOrder
	}
	if len(override.CategoryMapping) > 0 {
		p.CategoryMapping = override.CategoryMapping
	}
	return p, nil
}

// MapCategory maps a segmentation label to an app category. Total:
// unknown labels map to ACC.
func (p Policy) MapCategory(label string) models.Category {
	if c, ok := p.CategoryMapping[label]; ok {
		return c
	}
	return models.CategoryAcc
}
