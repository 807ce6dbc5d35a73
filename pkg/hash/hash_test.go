package hash

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashLeaf_Deterministic(t *testing.T) {
	a := HashLeaf([]byte("payload"))
	b := HashLeaf([]byte("payload"))
	assert.Equal(t, a, b)
}

func TestHashLeaf_DomainSeparatedFromInner(t *testing.T) {
	h1 := HashLeaf([]byte("one"))
	h2 := HashLeaf([]byte("two"))

	inner := HashInner(h1, h2)

	// H_leaf(T_L || T_I || H1 || H2) must never equal H_inner(H1, H2): a
	// leaf whose content happens to look like an inner node's tag+children
	// must not be confusable with that inner node.
	innerShaped := append(append([]byte{}, innerTag[:]...), h1.Bytes()...)
	innerShaped = append(innerShaped, h2.Bytes()...)
	leafOfInnerShaped := HashLeaf(innerShaped)

	assert.NotEqual(t, inner, leafOfInnerShaped)
}

func TestHashInner_OrderMatters(t *testing.T) {
	h1 := HashLeaf([]byte("left"))
	h2 := HashLeaf([]byte("right"))

	assert.NotEqual(t, HashInner(h1, h2), HashInner(h2, h1))
}

func TestHashLeafStream_MatchesHashLeaf(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 200*1024)

	streamed, err := HashLeafStream(bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, HashLeaf(payload), streamed)
}

func TestFromBytes_RejectsWrongLength(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	require.Error(t, err)
	var lenErr *InvalidLengthError
	require.ErrorAs(t, err, &lenErr)
}

func TestHash_JSONRoundTrip(t *testing.T) {
	h := HashLeaf([]byte("roundtrip"))

	b, err := json.Marshal(h)
	require.NoError(t, err)

	var decoded Hash
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, h, decoded)
}

func TestHash_StringIsLowercaseHex(t *testing.T) {
	h := HashLeaf([]byte("case"))
	assert.Len(t, h.String(), 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", h.String())
}
