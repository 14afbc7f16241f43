package formerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  &Error{Code: CodeStructural, Message: "duplicate key"},
			want: "STRUCTURAL: duplicate key",
		},
		{
			name: "path and sorted details",
			err:  CountViolation("gallery", "add", 4, 3),
			want: "STRUCTURAL: add would exceed max_items (path=gallery) count=4 max_items=3",
		},
		{
			name: "cause",
			err:  CleanupFailure(2, errors.New("disk full")),
			want: "CLEANUP_FAILURE: cleanup action failed action=2: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCountViolationRemove(t *testing.T) {
	err := CountViolation("gallery", "remove", 0, 1)
	assert.Equal(t, "remove would fall below min_items", err.Message)
	assert.Equal(t, map[string]string{"count": "0", "min_items": "1"}, err.Details)
}

func TestPredicatesThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"structural", Structural("gallery", "bad %s", "shape"), IsStructural},
		{"address", AddressResolution("image", "no container"), IsAddressResolution},
		{"collection", CollectionResolution("gallery.__TEMPLATE__.image", "template"), IsCollectionResolution},
		{"cleanup", CleanupFailure(0, errors.New("x")), IsCleanupFailure},
		{"persistence", PersistenceOrder("article/<new>"), IsPersistenceOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("submit article: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestHasCodeJoined(t *testing.T) {
	joined := errors.Join(CleanupFailure(0, errors.New("a")), CleanupFailure(1, errors.New("b")))

	assert.True(t, HasCode(joined, CodeCleanupFailure))
	assert.False(t, HasCode(joined, CodeStructural))
	assert.False(t, HasCode(nil, CodeStructural))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Structural("gallery", "too many"))

	assert.ErrorIs(t, err, &Error{Code: CodeStructural})
	assert.NotErrorIs(t, err, &Error{Code: CodeAddressResolution})
	assert.NotErrorIs(t, err, &Error{Code: CodeStructural, Message: "other"})
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("constraint failed")
	err := CleanupFailure(0, cause)

	require.ErrorIs(t, err, cause)
	assert.Nil(t, Structural("x", "y").Unwrap())
}
