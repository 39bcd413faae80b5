// Package runtimeconfig holds the module configuration handed over by the
// host page, plus validation for it.
package runtimeconfig

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

var (
	ErrViewInvalid             = errors.New("editor config: view must be fullscreen or inline")
	ErrPageIDRequired          = errors.New("editor config: page id is required")
	ErrEditableTargetUnknown   = errors.New("editor config: unknown editable target kind")
	ErrDefaultLanguageMissing  = errors.New("editor config: languages require exactly one default")
	ErrCurrentLanguageUnknown  = errors.New("editor config: current language is not declared")
	ErrLoggingFormatInvalid    = errors.New("editor config: logging format is invalid")
	ErrSectionNameRequired     = errors.New("editor config: sections index entries require a name")
	ErrWarnTargetNameRequired  = errors.New("editor config: extra-content warnings require kind and name")
	ErrEndpointPageURLRequired = errors.New("editor config: host page url is required")
)

// Language describes one translation the host serves.
type Language struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	IsDefault bool   `json:"isDefault"`
}

// WarnTarget names a (kind, name) pair that flags extra authored content
// instead of blocking it (e.g. heading/title).
type WarnTarget struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// LoggingConfig captures provider options for runtime logging.
type LoggingConfig struct {
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// Config aggregates everything the engine needs from the host page.
type Config struct {
	// View selects the surface double-click opens by default.
	View string
	// PageID identifies the page every target belongs to.
	PageID string
	// PageURL is the page's own URL; host endpoints are query toggles on it.
	PageURL string
	// ToolbarButtons is the csv command list for plain fields.
	ToolbarButtons string
	// ContainerToolbar overrides ToolbarButtons for container targets.
	ContainerToolbar string
	// EditableTargets lists the target kinds editing is enabled for.
	EditableTargets []string
	Languages       []Language
	CurrentLanguage string
	SectionsIndex   []interfaces.SectionIndexEntry
	// WarnTargets lists the combinations that warn on extra content.
	WarnTargets []WarnTarget
	Logging     LoggingConfig
}

// DefaultConfig returns the baseline the host payload is merged over.
func DefaultConfig() Config {
	return Config{
		View:            "fullscreen",
		ToolbarButtons:  "bold,italic,strike,code,link,h1,h2,h3,list,quote,save",
		EditableTargets: []string{"tag", "container", "bind", "section", "subsection"},
		WarnTargets:     []WarnTarget{{Kind: "tag", Name: "title"}},
		Logging:         LoggingConfig{Level: "info", Format: "json"},
	}
}

var knownTargetKinds = map[string]struct{}{
	"tag": {}, "container": {}, "bind": {}, "section": {}, "subsection": {},
}

// Validate checks field shapes with ozzo and cross-field rules with
// sentinel errors so hosts can branch on the failure.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.View, validation.Required, validation.In("fullscreen", "inline").Error(ErrViewInvalid.Error())),
		validation.Field(&c.PageID, validation.Required.Error(ErrPageIDRequired.Error())),
		validation.Field(&c.PageURL, validation.Required.Error(ErrEndpointPageURLRequired.Error())),
	)
	if err != nil {
		return err
	}

	for _, kind := range c.EditableTargets {
		if _, ok := knownTargetKinds[strings.TrimSpace(kind)]; !ok {
			return ErrEditableTargetUnknown
		}
	}

	if len(c.Languages) > 0 {
		defaults := 0
		known := map[string]struct{}{}
		for _, lang := range c.Languages {
			if lang.IsDefault {
				defaults++
			}
			known[lang.Name] = struct{}{}
		}
		if defaults != 1 {
			return ErrDefaultLanguageMissing
		}
		if c.CurrentLanguage != "" {
			if _, ok := known[c.CurrentLanguage]; !ok {
				return ErrCurrentLanguageUnknown
			}
		}
	}

	for _, entry := range c.SectionsIndex {
		if strings.TrimSpace(entry.Name) == "" {
			return ErrSectionNameRequired
		}
	}

	for _, warn := range c.WarnTargets {
		if strings.TrimSpace(warn.Kind) == "" || strings.TrimSpace(warn.Name) == "" {
			return ErrWarnTargetNameRequired
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "json", "console", "pretty":
	default:
		return ErrLoggingFormatInvalid
	}

	return nil
}

// WarnsForExtraContent reports whether the (kind, name) pair is configured
// to warn instead of hard-blocking additional blocks.
func (c Config) WarnsForExtraContent(kind, name string) bool {
	for _, warn := range c.WarnTargets {
		if warn.Kind == kind && warn.Name == name {
			return true
		}
	}
	return false
}
