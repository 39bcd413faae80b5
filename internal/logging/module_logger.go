package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

const (
	rootModule    = "fronteditor"
	indexModule   = "fronteditor.index"
	bridgeModule  = "fronteditor.bridge"
	sessionModule = "fronteditor.session"
	saveModule    = "fronteditor.save"
	windowsModule = "fronteditor.windows"
	statusModule  = "fronteditor.status"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		return fieldsLogger.WithFields(map[string]any{
			"module": module,
		})
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// IndexLogger returns the logger namespace reserved for the content index.
func IndexLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, indexModule)
}

// BridgeLogger returns the logger namespace reserved for the markdown bridge.
func BridgeLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, bridgeModule)
}

// SessionLogger returns the logger namespace reserved for edit sessions.
func SessionLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, sessionModule)
}

// SaveLogger returns the logger namespace reserved for the save coordinator.
func SaveLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, saveModule)
}

// WindowsLogger returns the logger namespace reserved for the window stack.
func WindowsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, windowsModule)
}

// StatusLogger returns the logger namespace reserved for status transitions.
func StatusLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, statusModule)
}

// WithSessionContext enriches the provided logger with common session fields
// such as field id, scope, and surface. Empty values are ignored.
func WithSessionContext(logger interfaces.Logger, fieldID, scope, surface string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(fieldID); trimmed != "" {
		fields["field_id"] = trimmed
	}
	if trimmed := strings.TrimSpace(scope); trimmed != "" {
		fields["scope"] = trimmed
	}
	if trimmed := strings.TrimSpace(surface); trimmed != "" {
		fields["surface"] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
