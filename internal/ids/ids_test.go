package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()

	assert.Len(t, a, 36)
	assert.True(t, Valid(a))
	assert.NotEqual(t, a, b)
	assert.False(t, Valid("not-a-uuid"))
}
