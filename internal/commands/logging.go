package commands

import (
	"strings"

	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

const commandModuleRoot = "fronteditor.commands"

// CommandLogger returns a module-scoped logger for command handlers,
// enriching it with consistent structured fields so save executions line up
// in aggregated logs.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
