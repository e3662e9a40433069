package histogram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountEmpty(t *testing.T) {
	f := Count(nil)
	require.Equal(t, uint64(0), f.Sum())
	require.Equal(t, 0, f.NonZero())
}

func TestCountBasic(t *testing.T) {
	f := Count([]byte("ABRACADABRA"))
	require.Equal(t, uint64(5), f['A'])
	require.Equal(t, uint64(2), f['B'])
	require.Equal(t, uint64(2), f['R'])
	require.Equal(t, uint64(1), f['C'])
	require.Equal(t, uint64(1), f['D'])
	require.Equal(t, uint64(11), f.Sum())
	require.Equal(t, 5, f.NonZero())
}

func TestCountSingleSymbol(t *testing.T) {
	f := Count([]byte{0x41, 0x41, 0x41})
	require.Equal(t, uint64(3), f[0x41])
	require.Equal(t, 1, f.NonZero())
}
