package rut

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/pkg/apperror"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "123456785", Clean("12.345.678-5"))
	assert.Equal(t, "123456785", Clean("12345678-5"))
	assert.Equal(t, "", Clean(""))
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, Validate("12.345.678-5"))
	require.NoError(t, Validate("12345678-5"))
}

func TestValidate_WrongCheckDigit(t *testing.T) {
	err := Validate("12.345.678-9")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidInput, apperror.CodeOf(err))
}

func TestValidate_Empty(t *testing.T) {
	require.Error(t, Validate(""))
	require.Error(t, Validate("   "))
}

func TestValidate_TooShort(t *testing.T) {
	require.Error(t, Validate("123-4"))
}

func TestValidate_TooLong(t *testing.T) {
	require.Error(t, Validate("123456789012-3"))
}

func TestValidate_NonDigitBody(t *testing.T) {
	require.Error(t, Validate("1234ABC8-5"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.345.678-5", Format("123456785"))
	assert.Equal(t, "1.234.567-K", Format("1234567K"))
}

func TestNormalize(t *testing.T) {
	out, err := Normalize("123456785")
	require.NoError(t, err)
	assert.Equal(t, "12.345.678-5", out)

	_, err = Normalize("invalid")
	require.Error(t, err)
}
