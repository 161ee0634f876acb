// -----------------------------------------------------------------------
// Selector Profile - Per-portal selector candidates, loadable from YAML
// -----------------------------------------------------------------------

package automation

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed profile_default.yaml
var defaultProfileYAML []byte

// FieldCandidates lists the ways a logical form control may appear in the
// portal markup: attribute selectors tried first, then label texts for the
// label-based fallback strategies.
type FieldCandidates struct {
	Attributes []string `yaml:"attributes"`
	Labels     []string `yaml:"labels"`
}

// SelectorProfile describes every control and read-only field the automation
// touches on the portal. The embedded default ships with the binary; a
// portal.selector_profile path overrides it without a rebuild when the
// portal's markup drifts.
type SelectorProfile struct {
	Fields      map[string]FieldCandidates `yaml:"fields"`
	Results     map[string][]string        `yaml:"results"`
	LoginPrompt []string                   `yaml:"login_prompt"`
}

// LoadProfile returns the selector profile from path, or the embedded
// default when path is empty.
func LoadProfile(path string) (*SelectorProfile, error) {
	data := defaultProfileYAML
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read selector profile %s: %w", path, err)
		}
		data = fileData
	}

	var profile SelectorProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse selector profile: %w", err)
	}

	if len(profile.Fields) == 0 {
		return nil, fmt.Errorf("selector profile defines no fields")
	}

	return &profile, nil
}

// Field returns the candidates for a logical field name.
func (p *SelectorProfile) Field(name string) FieldCandidates {
	return p.Fields[name]
}

// ResultCandidates returns the read-only selectors for a result field.
func (p *SelectorProfile) ResultCandidates(name string) []string {
	return p.Results[name]
}
