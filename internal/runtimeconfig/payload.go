package runtimeconfig

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

// payloadSchema pins the shape of the JSON blob the host page embeds. The
// payload is validated before decoding so malformed host integrations fail
// loudly instead of producing half-wired editors.
const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["pageId", "pageUrl"],
  "properties": {
    "view": {"type": "string", "enum": ["fullscreen", "inline"]},
    "pageId": {"type": "string", "minLength": 1},
    "pageUrl": {"type": "string", "minLength": 1},
    "toolbarButtons": {"type": "string"},
    "containerToolbar": {"type": "string"},
    "editableTargets": {"type": "array", "items": {"type": "string"}},
    "languages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "title": {"type": "string"},
          "isDefault": {"type": "boolean"}
        }
      }
    },
    "currentLanguage": {"type": "string"},
    "sectionsIndex": {
      "type": "array",
      "items": {"$ref": "#/$defs/section"}
    },
    "warnTargets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["kind", "name"],
        "properties": {
          "kind": {"type": "string"},
          "name": {"type": "string"}
        }
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string"},
        "format": {"type": "string"},
        "addSource": {"type": "boolean"},
        "focus": {"type": "array", "items": {"type": "string"}}
      }
    }
  },
  "$defs": {
    "section": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "markdownBase64": {"type": "string"},
        "subsections": {"type": "array", "items": {"$ref": "#/$defs/section"}}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledPayloadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("config.schema.json", bytes.NewReader([]byte(payloadSchema))); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("config.schema.json")
	})
	return compiledSchema, schemaErr
}

type payloadEnvelope struct {
	View             string           `json:"view"`
	PageID           string           `json:"pageId"`
	PageURL          string           `json:"pageUrl"`
	ToolbarButtons   string           `json:"toolbarButtons"`
	ContainerToolbar string           `json:"containerToolbar"`
	EditableTargets  []string         `json:"editableTargets"`
	Languages        []Language       `json:"languages"`
	CurrentLanguage  string           `json:"currentLanguage"`
	SectionsIndex    []payloadSection `json:"sectionsIndex"`
	WarnTargets      []WarnTarget     `json:"warnTargets"`
	Logging          struct {
		Level     string   `json:"level"`
		Format    string   `json:"format"`
		AddSource bool     `json:"addSource"`
		Focus     []string `json:"focus"`
	} `json:"logging"`
}

type payloadSection struct {
	Name           string           `json:"name"`
	MarkdownBase64 string           `json:"markdownBase64"`
	Subsections    []payloadSection `json:"subsections"`
}

// ParsePayload validates the host's JSON config blob against the embedded
// schema, decodes it, and merges it over DefaultConfig. Sections-index
// Markdown arrives base64 encoded and is decoded here.
func ParsePayload(raw []byte) (Config, error) {
	schema, err := compiledPayloadSchema()
	if err != nil {
		return Config{}, fmt.Errorf("editor config: schema compile: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Config{}, fmt.Errorf("editor config: payload is not valid JSON: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return Config{}, fmt.Errorf("editor config: payload rejected: %w", err)
	}

	var env payloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Config{}, fmt.Errorf("editor config: payload decode: %w", err)
	}

	cfg := DefaultConfig()
	if env.View != "" {
		cfg.View = env.View
	}
	cfg.PageID = env.PageID
	cfg.PageURL = env.PageURL
	if env.ToolbarButtons != "" {
		cfg.ToolbarButtons = env.ToolbarButtons
	}
	cfg.ContainerToolbar = env.ContainerToolbar
	if len(env.EditableTargets) > 0 {
		cfg.EditableTargets = env.EditableTargets
	}
	cfg.Languages = env.Languages
	cfg.CurrentLanguage = env.CurrentLanguage
	if len(env.WarnTargets) > 0 {
		cfg.WarnTargets = env.WarnTargets
	}
	if env.Logging.Level != "" {
		cfg.Logging.Level = env.Logging.Level
	}
	if env.Logging.Format != "" {
		cfg.Logging.Format = env.Logging.Format
	}
	cfg.Logging.AddSource = env.Logging.AddSource
	cfg.Logging.Focus = env.Logging.Focus

	cfg.SectionsIndex, err = decodeSections(env.SectionsIndex)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeSections(sections []payloadSection) ([]interfaces.SectionIndexEntry, error) {
	if len(sections) == 0 {
		return nil, nil
	}
	out := make([]interfaces.SectionIndexEntry, 0, len(sections))
	for _, s := range sections {
		md, err := decodeBase64(s.MarkdownBase64)
		if err != nil {
			return nil, fmt.Errorf("editor config: section %q markdown: %w", s.Name, err)
		}
		subs, err := decodeSections(s.Subsections)
		if err != nil {
			return nil, err
		}
		out = append(out, interfaces.SectionIndexEntry{
			Name:        s.Name,
			Markdown:    md,
			Subsections: subs,
		})
	}
	return out, nil
}

func decodeBase64(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
