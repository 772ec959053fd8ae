package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// ContentHash computes the canonical hash of a remote payload. Change
// detection compares hashes instead of trusting provider timestamps, so
// the serialization must be stable: encoding/json emits map keys in
// sorted order, which gives us that for free. Fields listed in strip
// (provider sync tokens, etags, audit timestamps) are removed first so
// bookkeeping churn does not register as a content change.
func ContentHash(record integration.Record, strip []string) string {
	cleaned := record.Clone()
	for _, path := range strip {
		deletePath(cleaned, path)
	}
	// Marshal cannot fail for data decoded from JSON; fall back to the
	// empty hash rather than poisoning the run on exotic values.
	raw, err := json.Marshal(map[string]any(cleaned))
	if err != nil {
		raw = nil
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// deletePath removes a dot-path addressed field. Missing intermediates
// are a no-op.
func deletePath(record integration.Record, path string) {
	segments := strings.Split(path, ".")
	current := map[string]any(record)
	for i, segment := range segments {
		if i == len(segments)-1 {
			delete(current, segment)
			return
		}
		next, ok := current[segment].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
}
