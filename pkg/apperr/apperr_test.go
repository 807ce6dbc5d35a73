package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels_AreDistinct(t *testing.T) {
	all := []error{ErrNoCommitment, ErrUnknownFile, ErrInputShape, ErrClosed}
	for i := range all {
		for j := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(all[i], all[j]), "%v must not match %v", all[i], all[j])
		}
	}
}

func TestSentinels_SurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("proof for %q: %w", "a.txt", ErrUnknownFile)
	assert.ErrorIs(t, wrapped, ErrUnknownFile)
	assert.False(t, errors.Is(wrapped, ErrNoCommitment))
}
