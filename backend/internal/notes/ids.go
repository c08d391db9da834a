package notes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"knowledge-weaver/backend/internal/constants"
)

// NewID mints a time-ordered note id and returns it with the creation time
// in milliseconds embedded in it. Ids sort lexically in creation order.
func NewID() (string, int64, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate note id: %w", err)
	}
	return constants.NoteIDPrefix + u.String(), uuidMillis(u), nil
}

// TimestampFromID recovers the creation time in milliseconds from a note id.
// Both "note-<ms>" and "note-<uuidv7>" forms are understood; anything else
// yields 0.
func TimestampFromID(id string) int64 {
	raw := strings.TrimPrefix(strings.TrimSpace(id), constants.NoteIDPrefix)
	if raw == "" {
		return 0
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms > 0 {
			return ms
		}
		return 0
	}
	u, err := uuid.Parse(raw)
	if err != nil || u.Version() != 7 {
		return 0
	}
	return uuidMillis(u)
}

// uuidMillis reads the 48-bit unix millisecond prefix of a v7 uuid
func uuidMillis(u uuid.UUID) int64 {
	var ms int64
	for i := 0; i < 6; i++ {
		ms = ms<<8 | int64(u[i])
	}
	return ms
}
