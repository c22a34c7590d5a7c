package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	root := errors.New("connection refused")
	err := fmt.Errorf("load corpus: %w", Wrap(root, CodeUnavailable, "store unavailable"))

	assert.True(t, HasCode(err, CodeUnavailable))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.True(t, errors.Is(err, root))
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(root))
	assert.Equal(t, "store unavailable: connection refused", Wrap(root, CodeUnavailable, "store unavailable").Error())
}

func TestHasCodeNested(t *testing.T) {
	inner := New(CodeNotFound, "snapshot not found")
	outer := Wrap(inner, CodeInternal, "report failed")

	assert.True(t, Is(outer, CodeInternal))
	assert.True(t, Is(outer, CodeNotFound))
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeBadRequest:  http.StatusBadRequest,
		CodeValidation:  http.StatusBadRequest,
		CodeNotFound:    http.StatusNotFound,
		CodeConflict:    http.StatusConflict,
		CodeUnavailable: http.StatusServiceUnavailable,
		CodeTimeout:     http.StatusGatewayTimeout,
		CodeInternal:    http.StatusInternalServerError,
		Code("other"):   http.StatusInternalServerError,
	}
	for code, status := range tests {
		assert.Equal(t, status, HTTPStatus(code), string(code))
	}
}
