package room

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// CodeGenerator returns a candidate room code. Uniqueness is checked by the Manager.
type CodeGenerator func() (string, error)

// NewCodeGenerator draws codes of the given length from crypto/rand.
func NewCodeGenerator(length int) CodeGenerator {
	max := big.NewInt(int64(len(codeAlphabet)))
	return func() (string, error) {
		out := make([]byte, length)
		for i := range out {
			x, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("generating room code: %w", err)
			}
			out[i] = codeAlphabet[x.Int64()]
		}
		return string(out), nil
	}
}
