package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelEncoder_SortsAndDeduplicates(t *testing.T) {
	enc := NewLabelEncoder([]string{"licorice", "ginseng", "licorice", "astragalus"})

	assert.Equal(t, 3, enc.Len())
	assert.Equal(t, []string{"astragalus", "ginseng", "licorice"}, enc.Classes())

	i, err := enc.Encode("ginseng")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestLabelEncoder_RoundTrip(t *testing.T) {
	names := []string{"人参", "甘草", "黄芪", "当归", "ginseng"}
	enc := NewLabelEncoder(names)

	for _, n := range names {
		i, err := enc.Encode(n)
		require.NoError(t, err)
		got, err := enc.Decode(i)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestLabelEncoder_Errors(t *testing.T) {
	enc := NewLabelEncoder([]string{"ginseng"})

	_, err := enc.Encode("licorice")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, err = enc.Decode(1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = enc.Decode(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = enc.OneHot("licorice")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestLabelEncoder_OneHot(t *testing.T) {
	enc := NewLabelEncoder([]string{"c", "a", "b"})

	v, err := enc.OneHot("b")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, v)
}

func TestParseEncodingMode(t *testing.T) {
	m, err := ParseEncodingMode("onehot")
	require.NoError(t, err)
	assert.Equal(t, EncodingOneHot, m)

	_, err = ParseEncodingMode("bag-of-words")
	assert.Error(t, err)
}
