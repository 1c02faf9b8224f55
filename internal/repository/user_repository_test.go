package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjection(t *testing.T) {
	var def Projection
	assert.False(t, def.Includes(FieldActive))
	assert.False(t, def.Includes(FieldPasswordHash))

	p := WithHidden(FieldActive)
	assert.True(t, p.Includes(FieldActive))
	assert.False(t, p.Includes(FieldPasswordHash))

	both := WithHidden(FieldActive, FieldPasswordHash)
	assert.True(t, both.Includes(FieldActive))
	assert.True(t, both.Includes(FieldPasswordHash))
}
