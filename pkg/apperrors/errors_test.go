package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("register project: %w", Validation("hectares", "must be greater than zero"))

	assert.True(t, Is(err, CodeValidation))
	assert.False(t, Is(err, CodeInvalidTransition))
	assert.Equal(t, "hectares", FieldOf(err))
	assert.Equal(t, "register project: hectares: must be greater than zero", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, Is(nil, CodeInternal))
	assert.Empty(t, FieldOf(errors.New("boom")))
}

func TestLedgerUnavailableUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := LedgerUnavailable(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "ledger unavailable: connection refused", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:          http.StatusBadRequest,
		CodeInvalidTransition:   http.StatusConflict,
		CodeConflict:            http.StatusConflict,
		CodePaymentNotConfirmed: http.StatusPaymentRequired,
		CodeLedgerUnavailable:   http.StatusServiceUnavailable,
		CodeNotFound:            http.StatusNotFound,
		CodeForbidden:           http.StatusForbidden,
		CodeInternal:            http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code), string(code))
	}
}
