// Package content holds the portfolio's static data: profile, links,
// projects, toolbox, experience. It is loaded once at startup and never
// mutated afterwards.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mlcruz9/miguel-dev/internal/heatmap"
	"github.com/Mlcruz9/miguel-dev/internal/media"
)

//go:embed portfolio.yaml
var defaultYAML []byte

type Profile struct {
	Name     string   `yaml:"name"`
	Handle   string   `yaml:"handle"`
	Location string   `yaml:"location"`
	Email    string   `yaml:"email"`
	Headline []string `yaml:"headline"`
	Summary  string   `yaml:"summary"`
	Skills   []string `yaml:"skills"`
	Status   string   `yaml:"status"`
}

type Links struct {
	GitHub   string `yaml:"github"`
	LinkedIn string `yaml:"linkedin"`
	CV       string `yaml:"cv"`
}

type ProjectLinks struct {
	Demo string `yaml:"demo,omitempty"`
	Repo string `yaml:"repo,omitempty"`
}

type Project struct {
	Title       string       `yaml:"title"`
	Subtitle    string       `yaml:"subtitle"`
	Description string       `yaml:"description"`
	Highlights  []string     `yaml:"highlights"`
	Stack       []string     `yaml:"stack"`
	Links       ProjectLinks `yaml:"links"`
	Tag         string       `yaml:"tag,omitempty"`
	Media       media.Asset  `yaml:",inline"`

	Slug string `yaml:"-"`
}

type ToolboxItem struct {
	Icon  string   `yaml:"icon"`
	Title string   `yaml:"title"`
	Desc  string   `yaml:"desc"`
	Pills []string `yaml:"pills"`
}

type ExperienceItem struct {
	When    string   `yaml:"when"`
	Role    string   `yaml:"role"`
	Where   string   `yaml:"where"`
	Bullets []string `yaml:"bullets"`
}

type Heatmap struct {
	Username string   `yaml:"username"`
	Palette  []string `yaml:"palette"`
}

type Portfolio struct {
	Profile    Profile           `yaml:"profile"`
	Links      Links             `yaml:"links"`
	Deploys    map[string]string `yaml:"deploys"`
	Projects   []Project         `yaml:"projects"`
	Toolbox    []ToolboxItem     `yaml:"toolbox"`
	Experience []ExperienceItem  `yaml:"experience"`
	Heatmap    Heatmap           `yaml:"heatmap"`

	palette heatmap.Palette
}

// Load reads the portfolio from path, or the embedded default when path is
// empty. The result is validated.
func Load(path string) (*Portfolio, error) {
	data := defaultYAML
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes and validates portfolio YAML.
func Parse(data []byte) (*Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Portfolio) normalize() {
	p.Links.CV = FromPublic(p.Links.CV)
	for i := range p.Projects {
		pr := &p.Projects[i]
		pr.Slug = Slugify(pr.Title)
		if pr.Media.Primary != "" {
			pr.Media.Primary = FromPublic(pr.Media.Primary)
		}
		if pr.Media.Alternate != "" {
			pr.Media.Alternate = FromPublic(pr.Media.Alternate)
		}
		// "deploy:<name>" points at an entry of the deploys table.
		if name, ok := strings.CutPrefix(pr.Links.Demo, "deploy:"); ok {
			pr.Links.Demo = p.Deploys[name]
		}
		if pr.Links.Repo == "github" {
			pr.Links.Repo = p.Links.GitHub
		}
	}
}

// Validate checks the invariants the page relies on.
func (p *Portfolio) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Heatmap.Username) == "" {
		errs = append(errs, errors.New("heatmap.username must be set"))
	}
	if strings.TrimSpace(p.Profile.Name) == "" {
		errs = append(errs, errors.New("profile.name must be set"))
	}
	if len(p.Projects) == 0 {
		errs = append(errs, errors.New("projects must not be empty"))
	}
	seen := map[string]bool{}
	for i, pr := range p.Projects {
		if strings.TrimSpace(pr.Title) == "" {
			errs = append(errs, fmt.Errorf("projects[%d]: title must be set", i))
			continue
		}
		if len(pr.Highlights) == 0 || len(pr.Stack) == 0 {
			errs = append(errs, fmt.Errorf("project %q: highlights and stack must not be empty", pr.Title))
		}
		if strings.TrimSpace(pr.Media.Primary) == "" {
			errs = append(errs, fmt.Errorf("project %q: image must be set", pr.Title))
		}
		if seen[pr.Slug] {
			errs = append(errs, fmt.Errorf("project %q: duplicate slug %q", pr.Title, pr.Slug))
		}
		seen[pr.Slug] = true
	}
	for i, x := range p.Experience {
		if len(x.Bullets) == 0 {
			errs = append(errs, fmt.Errorf("experience[%d] %q: bullets must not be empty", i, x.Role))
		}
	}
	if !strings.HasPrefix(p.Links.CV, "/cv/") {
		errs = append(errs, fmt.Errorf("links.cv should point to a local /cv/... PDF, got %q", p.Links.CV))
	}
	pal, err := heatmap.ParsePalette(p.Heatmap.Palette)
	if err != nil {
		errs = append(errs, fmt.Errorf("heatmap.palette: %w", err))
	}
	p.palette = pal
	return errors.Join(errs...)
}

// Palette is the validated heatmap palette.
func (p *Portfolio) Palette() heatmap.Palette {
	return p.palette
}

// Project looks a project up by slug.
func (p *Portfolio) Project(slug string) (Project, bool) {
	for _, pr := range p.Projects {
		if pr.Slug == slug {
			return pr, true
		}
	}
	return Project{}, false
}

var leadingSlashes = regexp.MustCompile(`^/+`)

// FromPublic turns a path relative to the public asset root into an
// absolute URL path. Full URLs are returned untouched.
func FromPublic(path string) string {
	path = strings.TrimSpace(path)
	if strings.Contains(path, "://") {
		return path
	}
	return "/" + leadingSlashes.ReplaceAllString(path, "")
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
