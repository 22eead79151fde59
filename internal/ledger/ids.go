package ledger

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Record ids live on the ledger as bytes32: the 16 uuid bytes left-padded
// to 32. These codecs convert between the two forms.

func UUIDToHex(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}
	padded := make([]byte, 32)
	copy(padded[16:], u[:])
	return "0x" + hex.EncodeToString(padded), nil
}

func HexToUUID(h string) (string, error) {
	s := strings.TrimPrefix(strings.ToLower(h), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", err
	}
	switch len(b) {
	case 32:
		b = b[16:]
	case 16:
	default:
		return "", errors.New("ledger id must be 16 or 32 bytes")
	}
	u, err := uuid.FromBytes(b)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
