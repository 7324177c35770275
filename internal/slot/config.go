package slot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/pagegrid/pagegrid/internal/types"
)

// ConfigParseError reports a malformed widget configuration document. It is
// surfaced inline to the editing surface and never reaches the store.
type ConfigParseError struct {
	WidgetType string
	Err        error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("widget config for %q: %v", e.WidgetType, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// slotFile is the on-disk YAML shape: one file per entity type.
type slotFile struct {
	EntityType string      `yaml:"entity_type" validate:"required"`
	Slots      []slotEntry `yaml:"slots" validate:"required,dive"`
}

type slotEntry struct {
	Name               string         `yaml:"name" validate:"required"`
	Label              string         `yaml:"label" validate:"required"`
	Description        string         `yaml:"description"`
	Required           bool           `yaml:"required"`
	MaxWidgets         *int           `yaml:"max_widgets" validate:"omitempty,min=0"`
	AllowedWidgetTypes []string       `yaml:"allowed_widget_types"`
	WidgetControls     []controlEntry `yaml:"widget_controls" validate:"dive"`
}

type controlEntry struct {
	WidgetType    string         `yaml:"widget_type" validate:"required"`
	Label         string         `yaml:"label" validate:"required"`
	DefaultConfig map[string]any `yaml:"default_config"`
	ConfigSchema  map[string]any `yaml:"config_schema"`
}

// Registry holds the loaded slot configuration for all entity types, plus the
// compiled JSON Schemas constraining per-type widget configuration.
type Registry struct {
	mu           sync.RWMutex
	validate     *validator.Validate
	byEntityType map[string][]types.SlotConfig
	schemas      map[string]*jsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		validate:     validator.New(),
		byEntityType: make(map[string][]types.SlotConfig),
		schemas:      make(map[string]*jsonschema.Schema),
	}
}

// LoadDir loads every .yaml/.yml file in dir, replacing the registry contents
// on success. A file that fails to parse or validate aborts the whole load so
// a half-applied configuration never becomes visible.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading slot config dir: %w", err)
	}

	byType := make(map[string][]types.SlotConfig)
	schemas := make(map[string]*jsonschema.Schema)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := r.loadFile(path, byType, schemas); err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}

	r.mu.Lock()
	r.byEntityType = byType
	r.schemas = schemas
	r.mu.Unlock()
	return nil
}

func (r *Registry) loadFile(path string, byType map[string][]types.SlotConfig, schemas map[string]*jsonschema.Schema) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file slotFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}
	if err := r.validate.Struct(file); err != nil {
		return fmt.Errorf("invalid slot config: %w", err)
	}

	cfgs := make([]types.SlotConfig, 0, len(file.Slots))
	for _, s := range file.Slots {
		cfg := types.SlotConfig{
			Name:               s.Name,
			Label:              s.Label,
			Description:        s.Description,
			Required:           s.Required,
			MaxWidgets:         s.MaxWidgets,
			AllowedWidgetTypes: s.AllowedWidgetTypes,
		}
		for _, c := range s.WidgetControls {
			ctl := types.WidgetControl{WidgetType: c.WidgetType, Label: c.Label}
			if c.DefaultConfig != nil {
				ctl.DefaultConfig, _ = json.Marshal(c.DefaultConfig)
			}
			if c.ConfigSchema != nil {
				schemaJSON, _ := json.Marshal(c.ConfigSchema)
				ctl.ConfigSchema = schemaJSON

				sch, err := compileSchema(c.WidgetType, schemaJSON)
				if err != nil {
					return fmt.Errorf("config schema for %q: %w", c.WidgetType, err)
				}
				schemas[c.WidgetType] = sch
			}
			cfg.WidgetControls = append(cfg.WidgetControls, ctl)
		}
		cfgs = append(cfgs, cfg)
	}
	byType[file.EntityType] = cfgs
	return nil
}

func compileSchema(widgetType string, schemaJSON []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	url := "inline://" + widgetType + ".schema.json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// ConfigsFor returns the slot configurations for one entity type.
func (r *Registry) ConfigsFor(entityType string) []types.SlotConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byEntityType[entityType]
}

// ConfigFor returns one slot's configuration for an entity type.
func (r *Registry) ConfigFor(entityType, slotName string) (types.SlotConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cfg := range r.byEntityType[entityType] {
		if cfg.Name == slotName {
			return cfg, true
		}
	}
	return types.SlotConfig{}, false
}

// EntityTypes returns the configured entity types in sorted order.
func (r *Registry) EntityTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byEntityType))
	for t := range r.byEntityType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ValidateWidgetConfig checks a raw widget configuration document: it must be
// valid JSON, and when the widget type carries a config schema it must
// satisfy it. Returns a *ConfigParseError on failure.
func (r *Registry) ValidateWidgetConfig(widgetType string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return &ConfigParseError{WidgetType: widgetType, Err: fmt.Errorf("not valid JSON")}
	}

	r.mu.RLock()
	sch := r.schemas[widgetType]
	r.mu.RUnlock()
	if sch == nil {
		return nil
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ConfigParseError{WidgetType: widgetType, Err: err}
	}
	if err := sch.Validate(inst); err != nil {
		return &ConfigParseError{WidgetType: widgetType, Err: err}
	}
	return nil
}
