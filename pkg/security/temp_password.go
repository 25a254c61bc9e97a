package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// tempPasswordCharset leaves out look-alikes (0/O, 1/l/I) since the value
// is read aloud or retyped by the new agent.
const tempPasswordCharset = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// GenerateTempPassword produces the one-time credential handed to a newly
// created agent or bootstrap admin.
func GenerateTempPassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	n := big.NewInt(int64(len(tempPasswordCharset)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("generate temp password: %w", err)
		}
		out[i] = tempPasswordCharset[idx.Int64()]
	}
	return string(out), nil
}
