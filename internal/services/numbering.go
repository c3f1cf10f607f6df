package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// documentNumber builds human-readable, time-ordered identifiers such as
// PAY-20261019-093012-4F1A9C2E.
func documentNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102-150405"), suffix)
}
