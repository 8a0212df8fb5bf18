package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs(t *testing.T) {
	payload := []byte(`{"id":"a","linkedPhotos":[{"target":"b","azimuth":90,"azimuthOffset":0}]}`)

	for _, name := range []string{"nop", "gzip", "lz4", "brotli"} {
		t.Run(name, func(t *testing.T) {
			codec, err := New(name)
			require.NoError(t, err)

			encoded, err := codec.Encode(payload)
			require.NoError(t, err)

			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("zstd")
	assert.Error(t, err)
}
