// Package prompts loads the prompt pack and renders it into chat messages.
//
// The pack is a YAML file with one entry per pipeline step. Each entry has a
// system and a human template written in text/template syntax. The default
// pack is embedded in the binary; a file on disk may replace it.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/overhuman/replyd/internal/brain"
)

// Names of the prompts every pack must define.
const (
	SummarizeUserData = "summarize-user-data"
	CheckIntent       = "check-intent"
	DiscoverContent   = "discover-content"
	GenerateReply     = "generate-reply"
	PrepareText       = "prepare-text"
)

// Required lists the prompt names a pack must provide.
var Required = []string{SummarizeUserData, CheckIntent, DiscoverContent, GenerateReply, PrepareText}

//go:embed prompts.yaml
var defaultPackYAML []byte

// Entry is one prompt as written in the pack file.
type Entry struct {
	Name   string `yaml:"name"`
	System string `yaml:"system"`
	Human  string `yaml:"human"`
}

type packFile struct {
	Prompts []Entry `yaml:"prompts"`
}

// Vars are the named values substituted into a prompt.
type Vars map[string]string

type compiled struct {
	system *template.Template
	human  *template.Template
}

// Set is a parsed, validated prompt pack. It is immutable and safe for
// concurrent use.
type Set struct {
	prompts map[string]compiled
}

// Default returns the embedded prompt pack.
func Default() (*Set, error) {
	return Parse(defaultPackYAML)
}

// MustDefault is Default for callers that cannot recover, such as tests.
func MustDefault() *Set {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// Load reads a pack from path. An empty path returns the embedded pack.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("prompts %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a Set from YAML and checks that every required prompt exists.
func Parse(data []byte) (*Set, error) {
	var f packFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompt pack: %w", err)
	}

	s := &Set{prompts: make(map[string]compiled, len(f.Prompts))}
	for _, e := range f.Prompts {
		if e.Name == "" {
			return nil, fmt.Errorf("prompt entry without name")
		}
		sys, err := template.New(e.Name + ".system").Option("missingkey=error").Parse(e.System)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: system: %w", e.Name, err)
		}
		hum, err := template.New(e.Name + ".human").Option("missingkey=error").Parse(e.Human)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: human: %w", e.Name, err)
		}
		s.prompts[e.Name] = compiled{system: sys, human: hum}
	}

	for _, name := range Required {
		if _, ok := s.prompts[name]; !ok {
			return nil, fmt.Errorf("missing prompt %q", name)
		}
	}
	return s, nil
}

// Render produces the system and user messages for the named prompt.
func (s *Set) Render(name string, vars Vars) ([]brain.Message, error) {
	p, ok := s.prompts[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %q", name)
	}

	var sys, hum bytes.Buffer
	if err := p.system.Execute(&sys, vars); err != nil {
		return nil, fmt.Errorf("render %s system prompt: %w", name, err)
	}
	if err := p.human.Execute(&hum, vars); err != nil {
		return nil, fmt.Errorf("render %s human prompt: %w", name, err)
	}

	return []brain.Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: hum.String()},
	}, nil
}
