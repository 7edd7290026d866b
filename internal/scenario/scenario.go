package scenario

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"reflect"

	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// Namespace seeds the ids derived from aliases.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/aretw0/swimlane"))

// Step is one event of a scenario in its loose form.
type Step struct {
	Type string         `yaml:"type"`
	Data map[string]any `yaml:"data"`
}

// Scenario is a named list of events. Id fields may hold a UUID or any
// other string, which is turned into a stable UUID.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"events"`
}

// Applier receives decoded events. *session.Manager satisfies it.
type Applier interface {
	Apply(ctx context.Context, boardID string, e domain.Event) (uint64, error)
}

// Parse reads a YAML scenario.
func Parse(b []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return &s, nil
}

// Load reads a YAML scenario file.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Demo returns the built-in scenario: one Command node, one cursor that selects it.
func Demo() *Scenario {
	s, err := Parse(demoYAML)
	if err != nil {
		panic(err)
	}
	return s
}

// Events decodes every step.
func (s *Scenario) Events() ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(s.Steps))
	for i, step := range s.Steps {
		data := step.Data
		if data == nil {
			data = map[string]any{}
		}
		e, err := domain.DecodeEvent(domain.EventType(step.Type), data, AliasHook())
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Run decodes the scenario and applies it to the board, stopping at the
// first failure. It returns the number of events applied.
func (s *Scenario) Run(ctx context.Context, boards Applier, boardID string) (int, error) {
	events, err := s.Events()
	if err != nil {
		return 0, err
	}
	for i, e := range events {
		if _, err := boards.Apply(ctx, boardID, e); err != nil {
			return i, fmt.Errorf("step %d (%s): %w", i, e.Type(), err)
		}
	}
	return len(events), nil
}

// NodeAlias is the NodeID a scenario gives to name.
func NodeAlias(name string) domain.NodeID {
	return domain.NodeIDFromUUID(resolve(name))
}

// CursorAlias is the CursorID a scenario gives to name.
func CursorAlias(name string) domain.CursorID {
	return domain.CursorIDFromUUID(resolve(name))
}

func resolve(s string) uuid.UUID {
	if u, err := uuid.Parse(s); err == nil {
		return u
	}
	return uuid.NewSHA1(Namespace, []byte(s))
}

var (
	nodeIDType   = reflect.TypeOf(domain.NodeID{})
	cursorIDType = reflect.TypeOf(domain.CursorID{})
)

// AliasHook decodes id strings that are not UUIDs into derived ids.
func AliasHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		switch t {
		case nodeIDType:
			return NodeAlias(data.(string)), nil
		case cursorIDType:
			return CursorAlias(data.(string)), nil
		}
		return data, nil
	}
}
