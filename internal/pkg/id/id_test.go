package id

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProducesDistinctULIDs(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 26)

	_, err := ulid.ParseStrict(a)
	require.NoError(t, err)
}

func TestNew_SortsByCreationTime(t *testing.T) {
	a := ulid.MustParse(New())
	b := ulid.MustParse(New())
	assert.LessOrEqual(t, a.Time(), b.Time())
}
