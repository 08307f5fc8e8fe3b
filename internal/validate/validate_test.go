package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	School string `json:"school" validate:"required,max=100"`
	Status string `json:"status" validate:"omitempty,status"`
}

func TestStruct(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(sample{School: "east"}))
	assert.NoError(t, v.Struct(sample{School: "east", Status: "approved"}))

	err := v.Struct(sample{Status: "archived"})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"school is required",
		"status must be one of pending, denied or approved",
	}, verr.Fields)
	assert.Equal(t, "school is required; status must be one of pending, denied or approved", err.Error())
}
