package content

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Store addresses are base58-encoded sha2-256 multihashes
// (0x12 0x20 prefix + 32-byte digest). The ledger carries only the digest.

const (
	multihashSha256 = 0x12
	multihashLen    = 0x20
)

// AddressToHash extracts the 0x-prefixed digest from a store address.
func AddressToHash(address string) (string, error) {
	raw := base58.Decode(address)
	if len(raw) != 2+multihashLen || raw[0] != multihashSha256 || raw[1] != multihashLen {
		return "", errors.New("not a sha2-256 multihash address")
	}
	return HexHash(raw[2:]), nil
}

// HashToAddress rebuilds the store address for a ledger-carried digest.
func HashToAddress(hash string) (string, error) {
	digest, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(hash), "0x"))
	if err != nil {
		return "", err
	}
	if len(digest) != multihashLen {
		return "", errors.New("digest must be 32 bytes")
	}
	raw := append([]byte{multihashSha256, multihashLen}, digest...)
	return base58.Encode(raw), nil
}

func HexHash(digest []byte) string {
	return "0x" + hex.EncodeToString(digest)
}
