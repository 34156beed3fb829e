package llm

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

const transcriptPlaceholder = "{{transcript}}"

// Profile is one named prompt pair for transcript structuring.
type Profile struct {
	System       string `yaml:"system"`
	UserTemplate string `yaml:"user_template"`
}

// Prompts holds every configured prompt profile.
type Prompts struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadPrompts reads prompt profiles from a YAML file. An empty path or a
// missing file loads the built-in defaults.
func LoadPrompts(path string) (*Prompts, error) {
	data := defaultPrompts
	if path != "" {
		loaded, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read prompts %q: %w", path, err)
			}
		} else {
			data = loaded
		}
	}

	var prompts Prompts
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if len(prompts.Profiles) == 0 {
		return nil, fmt.Errorf("prompts: no profiles defined")
	}
	for name, profile := range prompts.Profiles {
		if strings.TrimSpace(profile.System) == "" {
			return nil, fmt.Errorf("prompts: profile %q has no system prompt", name)
		}
		if !strings.Contains(profile.UserTemplate, transcriptPlaceholder) {
			return nil, fmt.Errorf("prompts: profile %q user_template lacks %s", name, transcriptPlaceholder)
		}
	}
	return &prompts, nil
}

// Profile returns the named profile, or the "lecture" default when name is
// empty.
func (p *Prompts) Profile(name string) (Profile, error) {
	if name == "" {
		name = "lecture"
	}
	profile, ok := p.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("prompts: unknown profile %q", name)
	}
	return profile, nil
}

// Render substitutes the transcript into the user template.
func (p Profile) Render(transcript string) string {
	return strings.ReplaceAll(p.UserTemplate, transcriptPlaceholder, transcript)
}
