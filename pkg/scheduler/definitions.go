package scheduler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chainflow/pkg/value"
)

// Definition is one workflow entry of a definitions file.
//
//	workflows:
//	  - name: employee_salary_analysis
//	    tasks: [read_csv, filter_departments, compute_average_salary]
//	    start_in: 2s
//	    input: data.csv
type Definition struct {
	Name    string   `yaml:"name"`
	Tasks   []string `yaml:"tasks"`
	StartAt string   `yaml:"start_at"`
	StartIn string   `yaml:"start_in"`
	Input   any      `yaml:"input"`
}

type definitionsFile struct {
	Workflows []Definition `yaml:"workflows"`
}

// LoadDefinitions reads a YAML definitions file. start_in is relative to now;
// a definition with neither start_at nor start_in starts at now.
func LoadDefinitions(path string, now time.Time) ([]*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow definitions: %w", err)
	}
	ws, err := ParseDefinitions(data, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ws, nil
}

// ParseDefinitions builds workflows from YAML data.
func ParseDefinitions(data []byte, now time.Time) ([]*Workflow, error) {
	var f definitionsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse workflow definitions: %w", err)
	}
	if len(f.Workflows) == 0 {
		return nil, errors.New("no workflows defined")
	}
	seen := make(map[string]bool, len(f.Workflows))
	out := make([]*Workflow, 0, len(f.Workflows))
	for i, d := range f.Workflows {
		w, err := d.Build(now)
		if err != nil {
			return nil, fmt.Errorf("workflow %d: %w", i, err)
		}
		if seen[w.name] {
			return nil, fmt.Errorf("workflow %d: duplicate name %q", i, w.name)
		}
		seen[w.name] = true
		out = append(out, w)
	}
	return out, nil
}

// Build validates d and turns it into a Workflow.
func (d Definition) Build(now time.Time) (*Workflow, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	if len(d.Tasks) == 0 {
		return nil, fmt.Errorf("%s: at least one task is required", name)
	}
	for i, t := range d.Tasks {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%s: task %d is empty", name, i)
		}
	}

	start := now
	switch {
	case d.StartAt != "" && d.StartIn != "":
		return nil, fmt.Errorf("%s: start_at and start_in are mutually exclusive", name)
	case d.StartAt != "":
		t, err := time.Parse(time.RFC3339, d.StartAt)
		if err != nil {
			return nil, fmt.Errorf("%s: start_at: %w", name, err)
		}
		start = t
	case d.StartIn != "":
		dur, err := time.ParseDuration(d.StartIn)
		if err != nil {
			return nil, fmt.Errorf("%s: start_in: %w", name, err)
		}
		start = now.Add(dur)
	}

	in, err := value.FromAny(d.Input)
	if err != nil {
		return nil, fmt.Errorf("%s: input: %w", name, err)
	}
	return NewWorkflow(name, d.Tasks, start, in), nil
}
