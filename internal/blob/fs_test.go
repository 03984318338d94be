package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	st, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("%PDF-1.7 fake artifact")

	loc, err := st.Write(ctx, data)
	require.NoError(t, err)
	require.NotEmpty(t, loc)

	got, err := st.Read(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDistinctLocations(t *testing.T) {
	st, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	a, err := st.Write(ctx, []byte("one"))
	require.NoError(t, err)
	b, err := st.Write(ctx, []byte("two"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestReadRejectsEscapingLocation(t *testing.T) {
	st, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = st.Read(context.Background(), "../outside")
	assert.Error(t, err)
	_, err = st.Read(context.Background(), "/etc/passwd")
	assert.Error(t, err)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	st, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, st.Delete(context.Background(), "aa/missing.bin"))
}
