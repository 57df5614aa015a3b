package search

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/contact-discovery/internal/model"
)

// Approach selects which providers a discovery run may use. Subsearch keys
// are validated against the known provider tags at load time; an approach
// never changes the waterfall order, only membership.
type Approach struct {
	ID          string          `yaml:"id"`
	Description string          `yaml:"description,omitempty"`
	Subsearches map[string]bool `yaml:"subsearches"`
}

// Enabled reports whether the approach permits the given provider.
// An approach with no subsearch map permits everything.
func (a Approach) Enabled(tag model.ProviderTag) bool {
	if len(a.Subsearches) == 0 {
		return true
	}
	return a.Subsearches[string(tag)]
}

// DefaultApproach permits the full waterfall.
func DefaultApproach() Approach {
	return Approach{ID: "default"}
}

// LoadApproaches reads search approaches from a YAML file and validates
// every subsearch key against the provider tag registry.
func LoadApproaches(path string) (map[string]Approach, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "search: read approaches %s", path)
	}

	var wrapper struct {
		Approaches []Approach `yaml:"approaches"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "search: parse approaches")
	}

	out := make(map[string]Approach, len(wrapper.Approaches))
	for _, a := range wrapper.Approaches {
		if a.ID == "" {
			return nil, eris.New("search: approach missing id")
		}
		if _, dup := out[a.ID]; dup {
			return nil, eris.Errorf("search: duplicate approach id %q", a.ID)
		}
		for key := range a.Subsearches {
			if !model.ProviderTag(key).Known() {
				return nil, eris.Errorf("search: approach %q references unknown search id %q", a.ID, key)
			}
		}
		out[a.ID] = a
	}
	return out, nil
}
