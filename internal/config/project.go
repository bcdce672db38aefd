package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MoodyStars/FreePoop/internal/effects"
	"github.com/MoodyStars/FreePoop/internal/media"
)

// Project is a declarative render request: sources, mode, effect set
// and output collected in one YAML file, so an edit can be re-rolled
// later without retyping flags. Zero fields defer to flags or
// application defaults.
type Project struct {
	Videos      []string `yaml:"videos"`
	Audios      []string `yaml:"audios"`
	Images      []string `yaml:"images"`
	GIFs        []string `yaml:"gifs"`
	Transitions []string `yaml:"transitions"`
	URLs        []string `yaml:"urls"`

	Mode    string      `yaml:"mode"`
	Year    int         `yaml:"year"`
	Seed    int64       `yaml:"seed"`
	Effects effects.Set `yaml:"effects"`
	Output  string      `yaml:"output"`
}

// LoadProject reads and parses a project file.
func LoadProject(path string) (*Project, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}

	p := &Project{}
	if err := yaml.Unmarshal(contents, p); err != nil {
		return nil, fmt.Errorf("unmarshal project %s: %w", path, err)
	}
	return p, nil
}

// Snapshot collects the project's source lists into a render snapshot.
func (p *Project) Snapshot() *media.Snapshot {
	var refs []media.Reference
	add := func(kind media.Kind, locators []string) {
		for _, loc := range locators {
			refs = append(refs, media.Reference{Kind: kind, Locator: loc})
		}
	}
	add(media.Video, p.Videos)
	add(media.Audio, p.Audios)
	add(media.Image, p.Images)
	add(media.GIF, p.GIFs)
	add(media.Transition, p.Transitions)
	add(media.RemoteURL, p.URLs)
	return media.SnapshotOf(refs...)
}
