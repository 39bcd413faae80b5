// Package save defines the command messages for host persistence. The save
// coordinator executes them through the shared command handler so every
// request gets validation, logging, and error tagging.
package save

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

// FieldCommand persists a single field's Markdown.
type FieldCommand struct {
	PageID   string
	FieldID  string
	Name     string
	Scope    string
	Section  string
	Markdown string
	// Language routes the save to the translations endpoint when set.
	Language string
	// RequestTag orders responses per field; stale tags are dropped.
	RequestTag uint64
}

// Type implements command.Message.
func (FieldCommand) Type() string { return "fronteditor.save.field" }

// Validate implements command.ValidatableMessage.
func (c FieldCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PageID, validation.Required),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Scope, validation.Required, validation.In(
			string(interfaces.ScopeField),
			string(interfaces.ScopeContainer),
			string(interfaces.ScopeSection),
			string(interfaces.ScopeSubsection),
		)),
	)
}

// BatchCommand persists several fields in one request.
type BatchCommand struct {
	PageID string
	Fields []interfaces.FieldSave
	// RequestTag orders batch responses per page.
	RequestTag uint64
}

// Type implements command.Message.
func (BatchCommand) Type() string { return "fronteditor.save.batch" }

// Validate implements command.ValidatableMessage.
func (c BatchCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PageID, validation.Required),
		validation.Field(&c.Fields, validation.Required, validation.By(fieldsHaveNames)),
	)
}

func fieldsHaveNames(value any) error {
	fields, _ := value.([]interfaces.FieldSave)
	for _, f := range fields {
		if f.Name == "" {
			return validation.NewError("save_field_name", "every batch field needs a name")
		}
	}
	return nil
}
