package survey

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed surveys.yaml
var surveysYAML []byte

var (
	mu      sync.RWMutex
	schemas []*Schema
)

func init() {
	builtin, err := LoadSchemas(bytes.NewReader(surveysYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded survey schemas are invalid: %v", err))
	}
	schemas = builtin
}

// LoadSchemas decodes and validates a YAML list of schemas without registering them
func LoadSchemas(r io.Reader) ([]*Schema, error) {
	var out []*Schema
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	for _, s := range out {
		if err := s.validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RegisterFile loads the schemas defined in a YAML file and registers them
func RegisterFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	loaded, err := LoadSchemas(fh)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for _, s := range loaded {
		Register(s)
	}
	return nil
}

// Register adds a schema, replacing any schema with the same name
func Register(s *Schema) {
	mu.Lock()
	defer mu.Unlock()

	for i, existing := range schemas {
		if existing.Name == s.Name {
			schemas[i] = s
			return
		}
	}
	schemas = append(schemas, s)
}

// Lookup finds a schema by name or alias, ignoring case
func Lookup(name string) (*Schema, error) {
	mu.RLock()
	defer mu.RUnlock()

	for _, s := range schemas {
		if s.matches(name) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: '%s'", ErrUnknownSurvey, name)
}

// MustLookup is Lookup for the built-in surveys, it panics on unknown names
func MustLookup(name string) *Schema {
	s, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Names lists the registered survey names in registration order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}
	return names
}
