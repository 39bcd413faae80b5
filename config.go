package fronteditor

import "github.com/goliatone/go-front-editor/internal/runtimeconfig"

var (
	ErrViewInvalid             = runtimeconfig.ErrViewInvalid
	ErrPageIDRequired          = runtimeconfig.ErrPageIDRequired
	ErrEditableTargetUnknown   = runtimeconfig.ErrEditableTargetUnknown
	ErrDefaultLanguageMissing  = runtimeconfig.ErrDefaultLanguageMissing
	ErrCurrentLanguageUnknown  = runtimeconfig.ErrCurrentLanguageUnknown
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
	ErrSectionNameRequired     = runtimeconfig.ErrSectionNameRequired
	ErrWarnTargetNameRequired  = runtimeconfig.ErrWarnTargetNameRequired
	ErrEndpointPageURLRequired = runtimeconfig.ErrEndpointPageURLRequired
)

type (
	Config        = runtimeconfig.Config
	Language      = runtimeconfig.Language
	WarnTarget    = runtimeconfig.WarnTarget
	LoggingConfig = runtimeconfig.LoggingConfig
)

// DefaultConfig returns the baseline the host payload is merged over.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// ParsePayload validates and decodes the host's JSON bootstrap payload
// into a Config, merging it over the defaults.
func ParsePayload(raw []byte) (Config, error) {
	return runtimeconfig.ParsePayload(raw)
}
