package content

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministicAndContentAddressed(t *testing.T) {
	require.Equal(t, Hash([]byte("hello")), Hash([]byte("hello")))
	require.NotEqual(t, Hash([]byte("hello")), Hash([]byte("world")))
}

func TestDetectAndFilterPassesThroughPlainText(t *testing.T) {
	res := DetectAndFilter("text", []byte("just a normal prompt about go channels"))
	require.False(t, res.Filtered)
	require.Equal(t, "just a normal prompt about go channels", string(res.Payload))
}

func TestDetectAndFilterCatchesMagicBytesEvenInTextBlock(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 20)...)
	res := DetectAndFilter("text", png)
	require.True(t, res.Filtered)
	require.Equal(t, "image/png", res.Placeholder.MediaType)
	require.Equal(t, "magic_bytes", res.Placeholder.FilteredReason)

	var decoded Placeholder
	require.NoError(t, json.Unmarshal(res.Payload, &decoded))
	require.Equal(t, res.Placeholder.OriginalSize, decoded.OriginalSize)
}

func TestDetectAndFilterAlwaysFiltersTypedImageBlock(t *testing.T) {
	res := DetectAndFilter("image", []byte("not actually binary but declared as an image block"))
	require.True(t, res.Filtered)
	require.Equal(t, "typed_binary_block", res.Placeholder.FilteredReason)
}

func TestDetectAndFilterBase64Heuristic(t *testing.T) {
	raw := bytes.Repeat([]byte{0x41}, 400) // 'A' repeated; encodes to a long base64 run
	encoded := base64.StdEncoding.EncodeToString(raw)
	require.True(t, len(encoded) >= 500)

	res := DetectAndFilter("text", []byte(encoded))
	require.True(t, res.Filtered)
	require.Equal(t, "base64_heuristic", res.Placeholder.FilteredReason)
}

func TestDetectAndFilterIgnoresShortBase64LikeStrings(t *testing.T) {
	short := strings.Repeat("QUJD", 10) // well under the 500-char threshold
	res := DetectAndFilter("text", []byte(short))
	require.False(t, res.Filtered)
}

func TestSniffMagicDistinguishesWebpFromGenericRiff(t *testing.T) {
	riffNotWebp := append([]byte("RIFF"), []byte("1234XXXXrest-of-payload")...)
	require.Equal(t, "", sniffMagic(riffNotWebp))

	webp := append([]byte("RIFF"), append([]byte("1234"), []byte("WEBPrest")...)...)
	require.Equal(t, "image/webp", sniffMagic(webp))
}
