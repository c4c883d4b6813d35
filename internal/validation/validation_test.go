package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolRequest struct {
	Value string `json:"value" validate:"required,toolslug"`
	Kind  string `json:"model" validate:"omitempty,modelkind"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestToolSlug(t *testing.T) {
	v := newValidator(t)

	for _, value := range []string{"color", "jersey-type", "pattern2"} {
		assert.NoError(t, v.Struct(toolRequest{Value: value}), value)
	}
	for _, value := range []string{"Color", "jersey_type", "-pattern", "two--dashes", "with space"} {
		assert.Error(t, v.Struct(toolRequest{Value: value}), value)
	}
}

func TestModelKind(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Struct(toolRequest{Value: "color", Kind: "CustomColorSection"}))

	err := v.Struct(toolRequest{Value: "color", Kind: "Sneaker"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "modelkind", verrs[0].Tag())
	assert.Equal(t, "model", verrs[0].Field())
}

func TestRegisterWithGin(t *testing.T) {
	require.NoError(t, RegisterWithGin())
	require.NoError(t, RegisterWithGin())
}
