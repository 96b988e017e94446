// Copyright 2026 Handrail Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseBytes parses a single workflow definition from YAML and validates it.
func ParseBytes(data []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse workflow YAML: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// ParseFile parses a workflow definition from a YAML file.
func ParseFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	w, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// LoadDir parses every .yaml/.yml file in dir into a workflow, in
// lexicographic order. Cross-workflow link targets are checked against the
// loaded set so a seed directory is internally consistent.
func LoadDir(dir string) ([]*Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	byName := make(map[string]*Workflow, len(paths))
	var workflows []*Workflow
	for _, p := range paths {
		w, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		if _, dup := byName[w.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate workflow name %q", p, w.Name)
		}
		byName[w.Name] = w
		workflows = append(workflows, w)
	}

	for _, w := range workflows {
		for _, target := range w.LinkTargets() {
			if _, ok := byName[target]; !ok {
				return nil, fmt.Errorf("workflow %q links to unknown workflow %q", w.Name, target)
			}
		}
	}
	return workflows, nil
}
