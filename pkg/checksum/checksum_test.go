package checksum

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumMatchesStdlib(t *testing.T) {
	data := []byte("ABRACADABRA")
	got := Sum(data)
	want := sha256.Sum256(data)
	require.Equal(t, want, got)
}

func TestDigestStreamingMatchesSum(t *testing.T) {
	d := NewDigest()
	d.Update([]byte("ABRA"))
	d.Update([]byte("CADABRA"))
	got := d.Finalize()

	want := Sum([]byte("ABRACADABRA"))
	require.Equal(t, want, got)
}

func TestSumEmpty(t *testing.T) {
	got := Sum(nil)
	want := sha256.Sum256(nil)
	require.Equal(t, want, got)
}
