package servicemodel

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func TestNewServiceError(t *testing.T) {
	cause := errors.New("connection lost")

	transport := NewServiceError("GetShadow failed", cause, nil)
	assert.ErrorIs(t, transport, ErrTransport)
	assert.ErrorIs(t, transport, cause)
	assert.NotErrorIs(t, transport, ErrRejected)
	assert.EqualError(t, transport, "GetShadow failed: connection lost")

	rejected := NewServiceError("GetShadow rejected", nil, errorResponse{Code: 404})
	assert.ErrorIs(t, rejected, ErrRejected)
	assert.EqualError(t, rejected, "GetShadow rejected")

	local := NewServiceError("something odd", nil, nil)
	assert.NotErrorIs(t, local, ErrTransport)
	assert.NotErrorIs(t, local, ErrRejected)
	assert.Equal(t, OutcomeLocalError, OutcomeOf(local))
}

func TestServiceError_Wrapped(t *testing.T) {
	se := newError(kindRejected, "rejected", nil, errorResponse{Code: 400, Message: "bad"})
	wrapped := fmt.Errorf("shadow sync: %w", se)

	assert.ErrorIs(t, wrapped, ErrRejected)
	rej, ok := Rejection[errorResponse](wrapped)
	assert.True(t, ok)
	assert.Equal(t, "bad", rej.Message)

	_, ok = Rejection[errorResponse](errors.New("plain"))
	assert.False(t, ok)
}
