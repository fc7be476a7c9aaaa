package validation

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
)

type sample struct {
	Email string   `json:"email" validate:"required,email"`
	Price float64  `json:"price" validate:"gt=0"`
	Sale  *float64 `json:"sale" validate:"omitempty,gt=0,ltefield=Price"`
	Unit  string   `json:"unit_for_price" validate:"oneof=kg g"`
}

func TestStruct(t *testing.T) {
	msgs := Messages{
		"email.required": "Email is required.",
		"email":          "Bad email.",
		"gt":             "Must be positive.",
	}
	half, zero, double := 5.0, 0.0, 20.0

	tests := []struct {
		name string
		in   sample
		want string
	}{
		{"field and tag", sample{Price: 10, Unit: "kg"}, "Email is required."},
		{"field only", sample{Email: "nope", Price: 10, Unit: "kg"}, "Bad email."},
		{"tag only", sample{Email: "a@b.io", Price: -1, Unit: "kg"}, "Must be positive."},
		{"pointer to zero", sample{Email: "a@b.io", Price: 10, Sale: &zero, Unit: "kg"}, "Must be positive."},
		{"cross field", sample{Email: "a@b.io", Price: 10, Sale: &double, Unit: "kg"}, "Invalid sale."},
		{"json name fallback", sample{Email: "a@b.io", Price: 10, Unit: "lb"}, "Invalid unit_for_price."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.in, msgs)
			require.Error(t, err)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Equal(t, tc.want, appErr.Message)
			assert.NotEmpty(t, appErr.Details)
		})
	}

	assert.NoError(t, Struct(sample{Email: "a@b.io", Price: 10, Sale: &half, Unit: "g"}, msgs))
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("admin", "oneof=user admin", "Invalid role."))
	err := Var("root", "oneof=user admin", "Invalid role.")
	require.Error(t, err)
	assert.Equal(t, "Invalid role.", err.Error())
}

func TestTranslatePassesOtherErrors(t *testing.T) {
	assert.NoError(t, Translate(nil, nil))
	plain := errors.New("unexpected EOF")
	assert.Same(t, plain, Translate(plain, nil))
}
