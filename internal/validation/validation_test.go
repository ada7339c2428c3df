package validation_test

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/tripquote/internal/validation"
)

type sample struct {
	Currency string `json:"currency,omitempty" validate:"required,iso4217"`
	Internal string `json:"-" validate:"required"`
}

func TestValidator_Shared(t *testing.T) {
	assert.Same(t, validation.Validator(), validation.Validator())
}

func TestValidator_UsesJSONNames(t *testing.T) {
	err := validation.Validator().Struct(sample{Currency: "EURO"})

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 2)
	assert.Equal(t, "currency", verrs[0].Field())
	assert.Equal(t, "iso4217", verrs[0].Tag())
	assert.Equal(t, "required", verrs[1].Tag())
}
