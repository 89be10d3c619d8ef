package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDUnique(t *testing.T) {
	u := NewUUID()
	a, b := u.ID(), u.ID()
	assert.NotEqual(t, a, b)
	assert.True(t, Valid(a))
}

func TestStaticIDs(t *testing.T) {
	u := NewStaticIDs("A", "B")
	for _, expected := range []string{"A", "B", "A", "B", "A"} {
		assert.Equal(t, expected, u.ID())
	}
}

func TestValid(t *testing.T) {
	assert.False(t, Valid("not-a-uuid"))
	assert.False(t, Valid(""))
	assert.True(t, Valid("7d444840-9dc0-11d1-b245-5ffdce74fad2"))
}
