package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		enc  Encoding
		want string
	}{
		{"utf-8", []byte("Café au lait"), EncodingUTF8, "Café au lait"},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "name,price"...), EncodingUTF8, "name,price"},
		{"windows-1252", []byte{'C', 'a', 'f', 0xE9, ' ', 0x80, '5'}, EncodingWindows1252, "Café €5"},
		{"utf-16le", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, EncodingUTF16LE, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.enc, DetectEncoding(tt.data))
			got, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
