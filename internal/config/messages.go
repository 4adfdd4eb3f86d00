package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MessageTemplate is one entry of a messages file: a payload (inline or from
// a file) plus optional headers. Templates are cycled through in order
// during a run.
type MessageTemplate struct {
	Payload     string            `yaml:"payload"`
	PayloadFile string            `yaml:"payload_file"`
	Headers     map[string]string `yaml:"headers"`
}

// LoadMessages reads a YAML messages file: a list of message templates.
// File-backed payloads are resolved eagerly so workers never touch the
// filesystem.
func LoadMessages(path string) ([]MessageTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("messages file: %w", err)
	}

	var templates []MessageTemplate
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("messages file %s: %w", path, err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("messages file %s: no templates", path)
	}

	for i := range templates {
		t := &templates[i]
		if t.Payload != "" && t.PayloadFile != "" {
			return nil, fmt.Errorf("messages file %s: template %d: payload and payload_file are mutually exclusive", path, i)
		}
		if t.PayloadFile != "" {
			body, err := os.ReadFile(t.PayloadFile)
			if err != nil {
				return nil, fmt.Errorf("messages file %s: template %d: %w", path, i, err)
			}
			t.Payload = string(body)
			t.PayloadFile = ""
		}
	}

	return templates, nil
}
