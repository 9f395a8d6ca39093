package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrCodeLoginFailed, "Invalid credentials"),
			want: "LOGIN_FAILED: Invalid credentials",
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeGatewayUnavailable, "Platform API unreachable", errors.New("dial tcp: timeout")),
			want: "GATEWAY_UNAVAILABLE: Platform API unreachable (cause: dial tcp: timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := GatewayUnavailable(cause)

	assert.ErrorIs(t, err, cause)
}

func TestAsAppError(t *testing.T) {
	appErr := LoginInProgress()
	wrapped := fmt.Errorf("login: %w", appErr)

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrCodeLoginInProgress, got.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeSessionExpired, GetCode(SessionExpired()))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
	assert.Equal(t, ErrCodeEmptyResult, GetCode(fmt.Errorf("wrapped: %w", EmptyResult("LOGIN"))))
}

func TestWithDetails(t *testing.T) {
	err := ValidationError("Bad form input").WithDetails(map[string]string{"email": "must not be empty"})
	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.NotNil(t, err.Details)
}
