package identity

import (
	"strconv"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// SessionUUID derives the stable identifier for an edit session on a field.
// Sessions on the same composite field id share identity across re-attach.
func SessionUUID(fieldID string) uuid.UUID {
	return UUID("go-front-editor:session:" + strings.TrimSpace(fieldID))
}

// TargetUUID derives the stable identifier for an editable target.
func TargetUUID(pageID, scope, section, name string) uuid.UUID {
	return UUID("go-front-editor:target:" + strings.TrimSpace(pageID) + ":" +
		strings.TrimSpace(scope) + ":" + strings.TrimSpace(section) + ":" + strings.TrimSpace(name))
}

// WindowUUID derives the stable identifier for a window stack entry.
func WindowUUID(label string, depth int) uuid.UUID {
	return UUID("go-front-editor:window:" + strings.TrimSpace(label) + ":" + strconv.Itoa(depth))
}
