package services

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentNumber(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 12, 0, time.UTC)
	pattern := regexp.MustCompile(`^PAY-20261019-093012-[0-9A-F]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		n := documentNumber("PAY", at)
		assert.Regexp(t, pattern, n)
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
}
