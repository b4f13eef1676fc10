package migrate

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/haven-app/haven/internal/schema"
)

// WriteYAML writes b as one YAML document.
func WriteYAML(w io.Writer, b Backup) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to write YAML: %w", err)
	}
	return enc.Close()
}

// ReadYAML parses a YAML backup. Unknown keys are rejected so typos don't
// silently drop data.
func ReadYAML(r io.Reader) (Backup, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var b Backup
	if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return Backup{}, fmt.Errorf("invalid YAML backup: %w", err)
	}
	if b.Recipes == nil {
		b.Recipes = []schema.Recipe{}
	}
	if b.Plan == nil {
		b.Plan = []PlanEntry{}
	}
	if b.Water == nil {
		b.Water = []WaterEntry{}
	}
	for i := range b.Recipes {
		b.Recipes[i].SetDefaults()
	}
	return b, nil
}
