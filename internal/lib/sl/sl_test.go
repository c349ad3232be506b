package sl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretMasksMiddle(t *testing.T) {
	attr := Secret("token", "abcdefghijkl")
	assert.Equal(t, "token", attr.Key)
	assert.Equal(t, "abc***jkl", attr.Value.String())

	assert.Equal(t, "***", Secret("token", "short").Value.String())
}

func TestErr(t *testing.T) {
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	assert.Equal(t, "", Err(nil).Value.String())
}
