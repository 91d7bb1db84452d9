package tour

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID mints an identifier from a human-readable prefix, a millisecond
// timestamp, and a random component. Uniqueness is statistical, not
// structural: the combination makes accidental collision practically
// impossible without a central counter.
func NewID(prefix string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), random)
}
