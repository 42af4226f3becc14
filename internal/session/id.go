package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewGradingID generates a unique id for a grading run: a sortable
// timestamp plus a random suffix so concurrent invocations cannot collide.
func NewGradingID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("grade_%s_%s", time.Now().Format("20060102_150405"), suffix)
}
