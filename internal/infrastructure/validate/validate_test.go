package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLengthBetween(t *testing.T) {
	rule := LengthBetween(4, 20)

	assert.NoError(t, rule("pass"))
	assert.NoError(t, rule("exactly twenty chars"))
	assert.Error(t, rule("abc"))
	assert.Error(t, rule("this string is well over twenty characters"))
}

func TestTrimmedLengthBetween(t *testing.T) {
	rule := TrimmedLengthBetween(1, 20)

	assert.NoError(t, rule("a"))
	assert.NoError(t, rule("  padded  "))
	assert.Error(t, rule(""))
	assert.Error(t, rule("     "))
}

func TestTrimmedLength(t *testing.T) {
	rule := TrimmedLength(8)

	assert.NoError(t, rule("a1b2c3d4"))
	assert.NoError(t, rule(" a1b2c3d4 "))
	assert.Error(t, rule("a1b2c3"))
}

func TestCompose(t *testing.T) {
	rule := Compose(Required(), MaxLength(5))

	assert.NoError(t, rule("ok"))
	assert.Error(t, rule(""))
	assert.Error(t, rule("toolong"))
}
