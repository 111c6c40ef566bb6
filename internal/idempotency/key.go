package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"example.com/longform/internal/domain"
)

// InteractionKey returns a stable fixed-length key for one
// (user, video, interaction type) tuple. Repeated toggles of the same tuple map
// to the same key, which is what makes them upserts.
// The composite is length-prefixed so ids containing the separator cannot collide.
func InteractionKey(userID, videoID string, t domain.InteractionType) string {
	composite := fmt.Sprintf("%d:%s|%d:%s|%s", len(userID), userID, len(videoID), videoID, t)
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}
