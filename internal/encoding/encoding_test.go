package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestDecode_PlainUTF8NeedsNoTransform(t *testing.T) {
	text, name, err := Decode([]byte("SELECT 1"), Auto)
	require.NoError(t, err)
	require.Equal(t, UTF8, name)
	require.Equal(t, "SELECT 1", text)
}

func TestDecode_StripsUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("SELECT 1")...)
	text, name, err := Decode(data, Auto)
	require.NoError(t, err)
	require.Equal(t, UTF8BOM, name)
	require.Equal(t, "SELECT 1", text)
}

func TestDecode_DetectsUTF16LEByBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	data, err := enc.NewEncoder().Bytes([]byte("SELECT 1"))
	require.NoError(t, err)

	text, name, err := Decode(data, Auto)
	require.NoError(t, err)
	require.Equal(t, UTF16LE, name)
	require.Equal(t, "SELECT 1", text)
}

func TestDecode_ScoresCP1250WhenNoBOM(t *testing.T) {
	data, err := charmap.Windows1250.NewEncoder().Bytes([]byte("-- Zażółć gęślą jaźń\nSELECT 1"))
	require.NoError(t, err)

	text, name, err := Decode(data, Auto)
	require.NoError(t, err)
	require.Equal(t, CP1250, name)
	require.Contains(t, text, "SELECT 1")
}

func TestDecode_NormalizesCRLFToLF(t *testing.T) {
	text, _, err := Decode([]byte("SELECT 1\r\nFROM dbo.Orders\r\n"), Auto)
	require.NoError(t, err)
	require.Equal(t, "SELECT 1\nFROM dbo.Orders\n", text)
}

func TestDecode_ExplicitHintStillValidatesUTF8(t *testing.T) {
	data, err := charmap.Windows1250.NewEncoder().Bytes([]byte("Zażółć"))
	require.NoError(t, err)

	_, _, err = Decode(data, UTF8)
	require.Error(t, err)
}
