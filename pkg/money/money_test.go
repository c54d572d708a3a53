package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromCents(t *testing.T) {
	assert.Equal(t, "9.99", FromCents(999).String())
	assert.Equal(t, "0", FromCents(0).String())
	assert.Equal(t, "-2.5", FromCents(-250).String())
}
