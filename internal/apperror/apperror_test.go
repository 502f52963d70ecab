package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors_Codes(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
		code int
	}{
		{"validation", Validation("bad"), KindValidation, http.StatusBadRequest},
		{"conflict", Conflict("taken"), KindConflict, http.StatusBadRequest},
		{"not found", NotFound("missing"), KindNotFound, http.StatusNotFound},
		{"unauthorized", Unauthorized("no"), KindUnauthorized, http.StatusUnauthorized},
		{"too large", TooLarge("big"), KindTooLarge, http.StatusRequestEntityTooLarge},
		{"storage", StorageFault("boom", nil), KindStorageFault, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestStorageFault_EmbedsStoreMessage(t *testing.T) {
	cause := errors.New("ResourceNotFoundException: table missing")
	err := StorageFault("Unable to scan", cause)

	assert.Equal(t, "Unable to scan. Error: ResourceNotFoundException: table missing", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	nf := NotFound("nope")
	wrapped := fmt.Errorf("lookup: %w", nf)
	assert.Same(t, nf, From(wrapped))

	unknown := From(errors.New("raw"))
	assert.Equal(t, KindStorageFault, unknown.Kind)
	assert.Equal(t, http.StatusInternalServerError, unknown.Code)
	assert.Contains(t, unknown.Message, "raw")
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(fmt.Errorf("x: %w", Conflict("dup")), KindConflict))
	assert.False(t, IsKind(Conflict("dup"), KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}
