package ledger

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDHexRoundTrip(t *testing.T) {
	id := uuid.NewString()

	h, err := UUIDToHex(id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "0x"))
	assert.Len(t, h, 66)
	assert.True(t, strings.HasPrefix(h, "0x00000000000000000000000000000000"))

	back, err := HexToUUID(h)
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestHexToUUIDUnpadded(t *testing.T) {
	id := "4bda1f1c-6ab7-4f0f-9a1a-b1c0e02dbd21"
	back, err := HexToUUID("0x4bda1f1c6ab74f0f9a1ab1c0e02dbd21")
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestHexToUUIDBadInput(t *testing.T) {
	_, err := HexToUUID("0x1234")
	assert.Error(t, err)

	_, err = HexToUUID("not hex")
	assert.Error(t, err)
}

func TestUUIDToHexBadInput(t *testing.T) {
	_, err := UUIDToHex("not-a-uuid")
	assert.Error(t, err)
}
