// Package hash implements the domain-separated leaf/inner hashing used by
// the Merkle commitment engine. The tag bytes and concatenation order are a
// bit-exact compatibility contract and must not change.
package hash

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
)

// Size is the length in bytes of a Hash.
const Size = 32

// Hash is an opaque 256-bit digest produced by HashLeaf or HashInner.
type Hash [Size]byte

// Zero is the all-zero digest, used as a default/sentinel value.
var Zero Hash

// leafTag and innerTag are the 4-byte little-endian domain tags prepended
// before hashing leaves and inner nodes, respectively.
var (
	leafTag  = [4]byte{0x01, 0x00, 0x00, 0x00}
	innerTag = [4]byte{0x02, 0x00, 0x00, 0x00}
)

// Bytes returns the digest as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// String renders the digest as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero digest.
func (h Hash) IsZero() bool {
	return h == Zero
}

// FromBytes parses a 32-byte slice into a Hash.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, &InvalidLengthError{Got: len(b)}
	}
	copy(h[:], b)
	return h, nil
}

// MarshalJSON renders the digest as a lowercase hex JSON string, so proofs
// and roots travel over HTTP as plain JSON rather than a binary encoding.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON parses a lowercase (or uppercase) hex JSON string.
func (h *Hash) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("hash: invalid JSON digest %q", b)
	}
	parsed, err := FromBytes(mustDecodeHex(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func mustDecodeHex(s []byte) []byte {
	out, err := hex.DecodeString(string(s))
	if err != nil {
		return nil
	}
	return out
}

// InvalidLengthError is returned when a digest does not have the expected
// width.
type InvalidLengthError struct {
	Got int
}

func (e *InvalidLengthError) Error() string {
	return "hash: invalid digest length"
}

// HashLeaf hashes T_L || B, the domain-separated leaf digest of B.
func HashLeaf(b []byte) Hash {
	state := crypto.NewKeccakState()
	state.Write(leafTag[:])
	state.Write(b)
	return sum(state)
}

// HashLeafStream is equivalent to HashLeaf but consumes B as a stream of
// chunks, bounding peak memory for large files. The result is bit-identical
// to HashLeaf(ioutil.ReadAll(r)).
func HashLeafStream(r io.Reader) (Hash, error) {
	state := crypto.NewKeccakState()
	state.Write(leafTag[:])
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			state.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Hash{}, err
		}
	}
	return sum(state), nil
}

// HashInner hashes T_I || L || R, the domain-separated inner-node digest of
// two children given in left-then-right order.
func HashInner(left, right Hash) Hash {
	state := crypto.NewKeccakState()
	state.Write(innerTag[:])
	state.Write(left[:])
	state.Write(right[:])
	return sum(state)
}

func sum(state crypto.KeccakState) Hash {
	var out Hash
	// go-ethereum's KeccakState exposes Read in addition to hash.Hash's Sum,
	// matching the pattern crypto.Keccak256Hash uses internally.
	_, _ = state.Read(out[:])
	return out
}
