package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/steveyegge/taskgate/internal/types"
)

// HashPayload returns a stable SHA-256 hex digest of the payload.
// encoding/json writes map keys in sorted order at every depth, so equal
// payloads hash equally regardless of insertion order.
//
// The hash is for audit dedup only; the failure tracker is keyed by agent.
func HashPayload(payload types.Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
