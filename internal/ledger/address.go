package ledger

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Ledger accounts are 0x-prefixed 20-byte hex addresses. Mixed-case input
// must carry a valid EIP-55 checksum; all-lowercase and all-uppercase
// forms are accepted as unchecksummed.

func ValidAddress(addr string) bool {
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		return false
	}
	body := addr[2:]
	if _, err := hex.DecodeString(strings.ToLower(body)); err != nil {
		return false
	}
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	checksummed, err := ChecksumAddress(addr)
	if err != nil {
		return false
	}
	return addr == checksummed
}

func ChecksumAddress(addr string) (string, error) {
	body := strings.ToLower(strings.TrimPrefix(addr, "0x"))
	if len(body) != 40 {
		return "", errors.New("address must be 20 bytes")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", err
	}

	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(body))
	sum := d.Sum(nil)

	out := []byte(body)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nib := sum[i/2]
		if i%2 == 0 {
			nib >>= 4
		}
		if nib&0x0f >= 8 {
			out[i] -= 'a' - 'A'
		}
	}
	return "0x" + string(out), nil
}
