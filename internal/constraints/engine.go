// Package constraints resolves the command set a target may use and
// enforces its block-count ceiling at the keystroke, paste, and
// post-command layers.
package constraints

import (
	"errors"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/internal/runtimeconfig"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
	"github.com/goliatone/go-front-editor/pkg/rtedoc"
)

// ErrPasteRejected signals a paste whose top-level block count exceeds the
// target's ceiling. Callers drop the paste without surfacing an error.
var ErrPasteRejected = errors.New("constraints: paste exceeds block ceiling")

// Marks and block commands the engine understands. Containers may be
// configured with a subset through the server toolbar string.
var allCommands = []string{
	"bold", "italic", "strike", "code", "link",
	"h1", "h2", "h3", "list", "quote", "save",
}

// RuleSet is the resolved policy for one target.
type RuleSet struct {
	Commands  map[string]bool
	MaxBlocks int // 0 means unlimited
}

// Allows reports whether the command may run against this target.
func (r RuleSet) Allows(command string) bool {
	return r.Commands[strings.ToLower(strings.TrimSpace(command))]
}

// CommandList returns the allowed commands in toolbar order.
func (r RuleSet) CommandList() []string {
	out := make([]string, 0, len(r.Commands))
	for _, cmd := range allCommands {
		if r.Commands[cmd] {
			out = append(out, cmd)
		}
	}
	return out
}

// KeyDecision is the keystroke-guard verdict.
type KeyDecision int

const (
	// KeyAllow lets the keystroke through untouched.
	KeyAllow KeyDecision = iota
	// KeySwallow drops the keystroke.
	KeySwallow
	// KeyAllowAudit lets the keystroke through and schedules a block-count
	// audit, used for Enter inside multi-item contexts.
	KeyAllowAudit
)

// KeyEvent carries the keystroke context the guard needs.
type KeyEvent struct {
	Key          string
	Shift        bool
	InListItem   bool
	InBlockquote bool
}

// Engine resolves rule sets and runs the three block-count guards.
type Engine struct {
	cfg       *runtimeconfig.Config
	bridge    interfaces.MarkdownBridge
	sanitizer *bluemonday.Policy
	converter *htmltomarkdown.Converter
	logger    interfaces.Logger
}

// New builds the engine. The bridge turns accepted paste HTML into
// document blocks.
func New(cfg *runtimeconfig.Config, bridge interfaces.MarkdownBridge, provider interfaces.LoggerProvider) *Engine {
	return &Engine{
		cfg:       cfg,
		bridge:    bridge,
		sanitizer: bluemonday.UGCPolicy(),
		converter: htmltomarkdown.NewConverter(
			htmltomarkdown.WithPlugins(base.NewBasePlugin(), commonmark.NewCommonmarkPlugin()),
		),
		logger: logging.ModuleLogger(provider, "fronteditor.constraints"),
	}
}

// Resolve computes the rule set for a target. Plain tag fields with a known
// shape get every command; everything else follows the server toolbar.
func (e *Engine) Resolve(target interfaces.EditableTarget) RuleSet {
	rules := RuleSet{Commands: map[string]bool{}}
	if target.SingleBlock() {
		rules.MaxBlocks = 1
	}

	if target.Kind == interfaces.KindTag {
		switch target.FieldType {
		case interfaces.FieldHeading, interfaces.FieldParagraph, interfaces.FieldList, interfaces.FieldQuote:
			for _, cmd := range allCommands {
				rules.Commands[cmd] = true
			}
			return rules
		}
	}

	toolbar := e.cfg.ContainerToolbar
	if toolbar == "" {
		toolbar = e.cfg.ToolbarButtons
	}
	for _, cmd := range strings.Split(toolbar, ",") {
		cmd = strings.ToLower(strings.TrimSpace(cmd))
		if cmd != "" {
			rules.Commands[cmd] = true
		}
	}
	rules.Commands["save"] = true
	return rules
}

// GuardKey is the keystroke guard. Only Enter is policy-relevant: on a
// single-block target it is swallowed outside multi-item contexts and
// audited inside them. Shift+Enter stays a hard break everywhere.
func (e *Engine) GuardKey(target interfaces.EditableTarget, ev KeyEvent) KeyDecision {
	if ev.Key != "Enter" || ev.Shift {
		return KeyAllow
	}
	rules := e.Resolve(target)
	if rules.MaxBlocks == 0 {
		return KeyAllow
	}
	if ev.InListItem || ev.InBlockquote {
		return KeyAllowAudit
	}
	return KeySwallow
}

// GuardPaste sanitizes pasted HTML, rejects it when its top-level block
// count exceeds the target's ceiling, and otherwise converts it into
// document blocks ready for insertion.
func (e *Engine) GuardPaste(target interfaces.EditableTarget, pastedHTML string) ([]rtedoc.Block, error) {
	clean := e.sanitizer.Sanitize(pastedHTML)
	nodes, err := dom.ParseFragment(clean)
	if err != nil {
		return nil, err
	}

	rules := e.Resolve(target)
	if blocks := countTopLevelBlocks(nodes); rules.MaxBlocks > 0 && blocks > rules.MaxBlocks {
		e.logger.Debug("constraints.paste_rejected",
			"target", target.ID, "blocks", blocks, "max", rules.MaxBlocks)
		return nil, ErrPasteRejected
	}

	markdown, err := e.converter.ConvertString(clean)
	if err != nil {
		return nil, err
	}
	doc, err := e.bridge.Parse(markdown)
	if err != nil {
		return nil, err
	}
	return doc.Blocks, nil
}

// Audit recounts the editor's top-level blocks after a structural command
// and rolls back on violation. Reports whether an undo happened.
func (e *Engine) Audit(target interfaces.EditableTarget, editor interfaces.Editor) bool {
	rules := e.Resolve(target)
	if rules.MaxBlocks == 0 {
		return false
	}
	doc := editor.Doc()
	if doc == nil || doc.BlockCount() <= rules.MaxBlocks {
		return false
	}
	e.logger.Info("constraints.audit_undo",
		"target", target.ID, "blocks", doc.BlockCount(), "max", rules.MaxBlocks)
	return editor.Undo()
}

// ShouldWarnForExtraContent reports whether extra authored blocks on this
// target flag a visual warning instead of being blocked outright.
func (e *Engine) ShouldWarnForExtraContent(target interfaces.EditableTarget) bool {
	return e.cfg.WarnsForExtraContent(string(target.Kind), target.Name)
}

var blockTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
	"div": true, "table": true, "hr": true, "figure": true,
}

// countTopLevelBlocks counts block elements among the fragment's roots.
// A contiguous run of inline content counts as one implicit paragraph.
func countTopLevelBlocks(nodes []*html.Node) int {
	count := 0
	inlineRun := false
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			if blockTags[n.Data] {
				inlineRun = false
				count++
				continue
			}
			if !inlineRun {
				inlineRun = true
				count++
			}
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
			if !inlineRun {
				inlineRun = true
				count++
			}
		}
	}
	return count
}
