package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "not found", err: NotFound("p1"), sentinel: ErrNotFound},
		{name: "conflict", err: Conflict("p1"), sentinel: ErrConflict},
		{name: "authorization", err: Unauthorized("bob", "asset:ship", "p1"), sentinel: ErrAuthorization},
		{name: "validation", err: Validation("asset id is required"), sentinel: ErrValidation},
		{name: "serialization", err: Serialization("p1", io.ErrUnexpectedEOF), sentinel: ErrSerialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.sentinel.(*Error).Code, GetCode(wrapped))
		})
	}
}

func TestErrorIsRejectsOtherCodes(t *testing.T) {
	assert.False(t, errors.Is(NotFound("p1"), ErrConflict))
	assert.False(t, errors.Is(io.EOF, ErrNotFound))
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, CodeUnknown, GetCode(io.EOF))
	assert.False(t, IsCode(nil, CodeNotFound))
}

func TestSerializationUnwrapsCause(t *testing.T) {
	err := Serialization("p1", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "p1")
}

func TestMetadataIsCopied(t *testing.T) {
	base := NotFound("p1")
	extended := base.WithMetadata("caller", "alice")

	assert.Equal(t, "p1", GetMetadata(base)["assetId"])
	assert.NotContains(t, GetMetadata(base), "caller")
	assert.Equal(t, "alice", GetMetadata(extended)["caller"])
}

func TestUnauthorizedMessage(t *testing.T) {
	assert.Equal(t, "bob is not allowed to asset:list", Unauthorized("bob", "asset:list", "").Error())
	assert.Equal(t, `bob is not allowed to asset:delete asset "p1"`, Unauthorized("bob", "asset:delete", "p1").Error())
}
