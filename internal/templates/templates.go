// Package templates provides the canonical template catalog: framework-defined
// task descriptions that exist independently of any project. Seeding clones
// catalog items into a project's task set; the resolver consults the catalog
// to tell "template known but never seeded" apart from a plain not-found.
package templates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taskdeck/taskdeck/internal/types"
)

// Item is a canonical template item. Its ID is stable and human-meaningful:
// factor items join a stage name with a compound code ("identification-1.1"),
// the other categories use slugs ("heuristic-review-gates").
type Item struct {
	ID       string       `yaml:"id" json:"id"`
	Category types.Origin `yaml:"category" json:"category"`
	Stage    types.Stage  `yaml:"stage" json:"stage"`
	Text     string       `yaml:"text" json:"text"`
}

// Validate checks a single catalog item.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("template item is missing an id")
	}
	if !it.Category.IsCanonical() {
		return fmt.Errorf("template %s: category %q is not a canonical origin", it.ID, it.Category)
	}
	if !it.Stage.IsValid() {
		return fmt.Errorf("template %s: invalid stage %q", it.ID, it.Stage)
	}
	if it.Text == "" {
		return fmt.Errorf("template %s: text is required", it.ID)
	}
	return nil
}

// Loader produces the full catalog. Implementations must be safe to call
// repeatedly; the cache decides when to call them.
type Loader func() ([]Item, error)

// FileLoader returns a Loader that reads a yaml catalog file on each call.
func FileLoader(path string) Loader {
	return func() ([]Item, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template catalog: %w", err)
		}
		var doc struct {
			Templates []Item `yaml:"templates"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse template catalog: %w", err)
		}
		return validateAll(doc.Templates)
	}
}

// StaticLoader returns a Loader serving a fixed item list. Used for the
// built-in catalog and in tests.
func StaticLoader(items []Item) Loader {
	return func() ([]Item, error) {
		return validateAll(items)
	}
}

func validateAll(items []Item) ([]Item, error) {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("duplicate template id %q in catalog", it.ID)
		}
		seen[it.ID] = true
	}
	return items, nil
}

// DefaultCatalog is the built-in framework definition used when no catalog
// file is configured.
func DefaultCatalog() []Item {
	return []Item{
		{ID: "identification-1.1", Category: types.OriginFactor, Stage: types.StageIdentification, Text: "Confirm the business case and sponsor"},
		{ID: "identification-1.2", Category: types.OriginFactor, Stage: types.StageIdentification, Text: "Identify stakeholders and their success criteria"},
		{ID: "definition-2.1", Category: types.OriginFactor, Stage: types.StageDefinition, Text: "Agree scope, milestones and acceptance criteria"},
		{ID: "definition-2.2", Category: types.OriginFactor, Stage: types.StageDefinition, Text: "Baseline the delivery plan and budget"},
		{ID: "delivery-3.1", Category: types.OriginFactor, Stage: types.StageDelivery, Text: "Track progress against the baselined plan"},
		{ID: "delivery-3.2", Category: types.OriginFactor, Stage: types.StageDelivery, Text: "Manage risks, issues and change requests"},
		{ID: "closure-4.1", Category: types.OriginFactor, Stage: types.StageClosure, Text: "Confirm acceptance and hand over deliverables"},
		{ID: "closure-4.2", Category: types.OriginFactor, Stage: types.StageClosure, Text: "Capture lessons learned and close contracts"},
		{ID: "heuristic-review-gates", Category: types.OriginHeuristic, Stage: types.StageDefinition, Text: "Schedule stage-gate reviews with the sponsor"},
		{ID: "heuristic-early-risks", Category: types.OriginHeuristic, Stage: types.StageIdentification, Text: "Log the top five delivery risks before planning"},
		{ID: "policy-data-retention", Category: types.OriginPolicy, Stage: types.StageClosure, Text: "Archive project records per the retention policy"},
		{ID: "framework-stage-gate", Category: types.OriginFramework, Stage: types.StageDelivery, Text: "Hold a go/no-go review before each stage exit"},
	}
}
