package domain_test

import (
	"testing"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionID(t *testing.T) {
	validUUID := "550e8400-e29b-41d4-a716-446655440000"

	t.Run("valid UUID", func(t *testing.T) {
		id, err := domain.NewSessionID(validUUID)
		require.NoError(t, err)
		assert.Equal(t, validUUID, id.String())
		assert.False(t, id.IsZero())
	})

	t.Run("empty string returns error", func(t *testing.T) {
		_, err := domain.NewSessionID("")
		assert.ErrorIs(t, err, domain.ErrEmptyID)
	})

	t.Run("invalid format returns error", func(t *testing.T) {
		_, err := domain.NewSessionID("not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("zero value is zero", func(t *testing.T) {
		var id domain.SessionID
		assert.True(t, id.IsZero())
		assert.Empty(t, id.String())
	})

	t.Run("generate creates valid ID", func(t *testing.T) {
		id := domain.GenerateSessionID()
		_, err := domain.NewSessionID(id.String())
		require.NoError(t, err)
	})

	t.Run("MustSessionID panics on invalid", func(t *testing.T) {
		assert.Panics(t, func() {
			domain.MustSessionID("invalid")
		})
	})
}
