// Package questions reads question bank files:
//
//	questions:
//	  - id: q-add-1        # optional
//	    prompt: "7 + 5 = ?"
//	    skills: [math_1_1.1.1.1]
//
// Questions without an id get a name-based UUID derived from their prompt
// and skills, so importing the same file twice yields the same ids.
package questions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/dash/internal/errs"
	"github.com/abhisek/dash/internal/scheduler"
	"github.com/abhisek/dash/internal/skillgraph"
)

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/abhisek/dash/questions"))

var bankSchema = map[string]any{
	"type":     "object",
	"required": []any{"questions"},
	"properties": map[string]any{
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"prompt", "skills"},
				"properties": map[string]any{
					"id":     map[string]any{"type": "string", "minLength": 1},
					"prompt": map[string]any{"type": "string", "minLength": 1},
					"skills": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items":    map[string]any{"type": "string", "minLength": 1},
					},
				},
			},
		},
	},
}

type questionDoc struct {
	ID     string   `yaml:"id,omitempty"`
	Prompt string   `yaml:"prompt"`
	Skills []string `yaml:"skills"`
}

type bankDoc struct {
	Questions []questionDoc `yaml:"questions"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// ReadFile decodes the question bank at path.
func ReadFile(path string) ([]scheduler.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	qs, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return qs, nil
}

// Decode parses and schema-validates a question bank document. Duplicate ids
// are rejected.
func Decode(data []byte) ([]scheduler.Question, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	if err := validate(generic); err != nil {
		return nil, err
	}

	var doc bankDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}

	out := make([]scheduler.Question, 0, len(doc.Questions))
	seen := make(map[string]bool, len(doc.Questions))
	for i, d := range doc.Questions {
		id := d.ID
		if id == "" {
			id = DeriveID(d.Prompt, d.Skills)
		}
		if seen[id] {
			return nil, errs.Invalid(fmt.Sprintf("questions[%d].id", i), "duplicate id %q", id)
		}
		seen[id] = true
		out = append(out, scheduler.Question{ID: id, Prompt: d.Prompt, SkillIDs: d.Skills})
	}
	return out, nil
}

// DeriveID returns the name-based id used for a question without one.
func DeriveID(prompt string, skills []string) string {
	return uuid.NewSHA1(namespace, []byte(prompt+"\x00"+strings.Join(skills, ","))).String()
}

// CheckSkills reports every question tag that names a skill missing from c.
func CheckSkills(qs []scheduler.Question, c *skillgraph.Catalog) error {
	var problems []string
	for _, q := range qs {
		for _, id := range q.SkillIDs {
			if !c.Has(id) {
				problems = append(problems, fmt.Sprintf("question %s: unknown skill %s", q.ID, id))
			}
		}
	}
	if len(problems) > 0 {
		return &errs.ConfigurationError{Problems: problems}
	}
	return nil
}

func validate(doc any) error {
	compileOnce.Do(func() {
		compiled, compileErr = compile("schema://dash/questions.json", bankSchema)
	})
	if compileErr != nil {
		return fmt.Errorf("compile question schema: %w", compileErr)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode question document: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode question document: %w", err)
	}
	if err := compiled.Validate(inst); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compile(url string, def map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(url)
}
