package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Supported document versions.
const (
	APIVersionLinear = 1
	APIVersionTree   = 2
)

// ErrInvalidPipeline is returned for documents that cannot be turned into descriptors.
var ErrInvalidPipeline = errors.New("invalid pipeline")

// Format selects the document decoder.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the decoder from the file extension. Anything but .json is YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// document is the on-disk shape of a pipeline.
type document struct {
	APIVersion *int       `yaml:"apiVersion" json:"apiVersion"`
	Name       string     `yaml:"name" json:"name"`
	Tasks      []taskSpec `yaml:"tasks" json:"tasks"`
}

type taskSpec struct {
	ID     *int           `yaml:"id" json:"id"`
	Parent *int           `yaml:"parent" json:"parent"`
	Name   string         `yaml:"name" json:"name"`
	Action string         `yaml:"action" json:"action"`
	Config map[string]any `yaml:"config" json:"config"`
}

// Pipeline is a parsed document. It implements ports.DescriptorSource.
type Pipeline struct {
	Name       string
	APIVersion int
	Tasks      []domain.TaskDescriptor
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*Pipeline, error) {
	var doc document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse json: %v", ErrInvalidPipeline, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse yaml: %v", ErrInvalidPipeline, err)
		}
	}
	return doc.build()
}

// Load reads and parses the pipeline at path. The name defaults to the file name.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}

	p, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return p, nil
}

func (d document) build() (*Pipeline, error) {
	if d.APIVersion == nil {
		return nil, fmt.Errorf("%w: missing apiVersion", ErrInvalidPipeline)
	}
	if d.Tasks == nil {
		return nil, fmt.Errorf("%w: you need an array of tasks", ErrInvalidPipeline)
	}

	p := &Pipeline{Name: d.Name, APIVersion: *d.APIVersion}
	for i, spec := range d.Tasks {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: task %d is missing a required 'name' field", ErrInvalidPipeline, i)
		}
		if spec.Action == "" {
			return nil, fmt.Errorf("%w: task %q is missing a required 'action' field", ErrInvalidPipeline, spec.Name)
		}

		desc := domain.TaskDescriptor{
			ID:     spec.ID,
			Parent: spec.Parent,
			Name:   spec.Name,
			Action: spec.Action,
			Params: normalize(spec.Config),
		}

		switch p.APIVersion {
		case APIVersionLinear:
			// Linear pipelines become a chain: task i+1 is the only child of task i.
			desc.ID = domain.Ref(i + 1)
			desc.Parent = nil
			if i > 0 {
				desc.Parent = domain.Ref(i)
			}
		case APIVersionTree:
			if spec.ID == nil {
				return nil, fmt.Errorf("%w: task %q is missing an 'id'", ErrInvalidPipeline, spec.Name)
			}
		default:
			return nil, fmt.Errorf("%w: unsupported apiVersion %d", ErrInvalidPipeline, p.APIVersion)
		}

		p.Tasks = append(p.Tasks, desc)
	}
	return p, nil
}

// Descriptors implements ports.DescriptorSource.
func (p *Pipeline) Descriptors(ctx context.Context) ([]domain.TaskDescriptor, error) {
	out := make([]domain.TaskDescriptor, len(p.Tasks))
	copy(out, p.Tasks)
	return out, nil
}

// Describe writes the tasks that will execute, one "action - name - params" line each.
func (p *Pipeline) Describe(w io.Writer) error {
	if len(p.Tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks parsed yet")
		return err
	}

	if _, err := fmt.Fprintln(w, "~~ Tasks that will execute ~~"); err != nil {
		return err
	}
	for _, t := range p.Tasks {
		if _, err := fmt.Fprintln(w, t.String()); err != nil {
			return err
		}
	}
	return nil
}

// normalize turns decoder-specific values into plain Go values so actions see
// the same params whatever the source format was.
func normalize(config map[string]any) map[string]any {
	params := make(map[string]any, len(config))
	for k, v := range config {
		params[k] = normalizeValue(v)
	}
	return params
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		f, _ := val.Float64()
		return f
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		return normalize(val)
	default:
		return v
	}
}
