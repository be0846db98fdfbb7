package skillgraph

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/dash/internal/errs"
)

// Source provides the full set of skills at startup or reload.
type Source interface {
	LoadSkills(ctx context.Context) ([]Skill, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Skill, error)

func (f SourceFunc) LoadSkills(ctx context.Context) ([]Skill, error) { return f(ctx) }

// Load reads every skill from src and builds a Catalog. Any failure,
// including a source read error, is a ConfigurationError: the engine must
// not run on a partial catalog.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	skills, err := src.LoadSkills(ctx)
	if err != nil {
		return nil, &errs.ConfigurationError{Problems: []string{"load skill catalog"}, Err: err}
	}
	return New(skills)
}

// skillDoc is the on-disk form of a skill.
type skillDoc struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name,omitempty"`
	GradeLevel     int      `yaml:"grade_level"`
	Prerequisites  []string `yaml:"prerequisites,omitempty"`
	ForgettingRate float64  `yaml:"forgetting_rate"`
	Difficulty     float64  `yaml:"difficulty,omitempty"`
}

type catalogDoc struct {
	Skills []skillDoc `yaml:"skills"`
}

// FileSource reads skills from a YAML (or JSON) catalog file.
type FileSource struct {
	Path string
}

func (f FileSource) LoadSkills(_ context.Context) ([]Skill, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	skills, err := DecodeSkills(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return skills, nil
}

// DecodeSkills parses and schema-validates a catalog document.
func DecodeSkills(data []byte) ([]Skill, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validateDocument(generic); err != nil {
		return nil, err
	}

	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	skills := make([]Skill, 0, len(doc.Skills))
	for _, d := range doc.Skills {
		skills = append(skills, Skill{
			ID:             d.ID,
			Name:           d.Name,
			Grade:          Grade(d.GradeLevel),
			Prerequisites:  d.Prerequisites,
			ForgettingRate: d.ForgettingRate,
			Difficulty:     d.Difficulty,
		})
	}
	return skills, nil
}

// EncodeSkills renders skills as a catalog document.
func EncodeSkills(skills []Skill) ([]byte, error) {
	doc := catalogDoc{Skills: make([]skillDoc, 0, len(skills))}
	for _, s := range skills {
		doc.Skills = append(doc.Skills, skillDoc{
			ID:             s.ID,
			Name:           s.Name,
			GradeLevel:     int(s.Grade),
			Prerequisites:  s.Prerequisites,
			ForgettingRate: s.ForgettingRate,
			Difficulty:     s.Difficulty,
		})
	}
	return yaml.Marshal(doc)
}
