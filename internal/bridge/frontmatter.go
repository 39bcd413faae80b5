package bridge

import (
	"bytes"
	"fmt"

	"github.com/adrg/frontmatter"
)

// splitFrontMatter separates an optional YAML front matter header from the
// Markdown body. Section-catalog entries may carry metadata the editor must
// never destroy, so the raw header text is kept verbatim and re-attached on
// serialize.
func splitFrontMatter(source string) (header, body string, err error) {
	if !bytes.HasPrefix([]byte(source), []byte("---")) {
		return "", source, nil
	}
	var meta map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader([]byte(source)), &meta)
	if err != nil {
		return "", "", fmt.Errorf("front matter: %w", err)
	}
	// the parser consumed the header; recover its raw text by length
	cut := len(source) - len(rest)
	if cut < 0 || cut > len(source) {
		return "", source, nil
	}
	return source[:cut], string(rest), nil
}
