package idgen

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextMatchesFormat(t *testing.T) {
	g := NewOrderNumberGenerator()
	pattern := regexp.MustCompile(`^CMD[A-Z0-9]{5}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		n, err := g.Next()
		require.NoError(t, err)
		assert.Regexp(t, pattern, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestNextFailsWhenEntropyExhausted(t *testing.T) {
	g := &OrderNumberGenerator{rand: bytes.NewReader(nil)}
	_, err := g.Next()
	assert.Error(t, err)
}
