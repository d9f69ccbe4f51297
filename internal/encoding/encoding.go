// Package encoding detects a SQL file's byte encoding (BOM first, then a
// text-quality score across UTF-8, UTF-16LE/BE, and CP-1250), decodes it
// to a string, and normalizes line endings to "\n". golang.org/x/text
// supplies the UTF-16 and CP-1250 transforms; net/http-style content
// sniffing isn't a fit here since SQL corpora are dominated by
// Windows-authored Central-European text files.
package encoding

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Name identifies a detected or explicitly-requested encoding.
type Name string

const (
	Auto      Name = "auto"
	UTF8      Name = "utf-8"
	UTF8BOM   Name = "utf-8-sig"
	UTF16LE   Name = "utf-16le"
	UTF16BE   Name = "utf-16be"
	CP1250    Name = "cp1250"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode turns raw file bytes into normalized text ("\n" line endings). If
// hint is Auto (or empty), the encoding is detected; otherwise hint is
// honored but the decoded result is still validated as well-formed UTF-8
// once transcoded, per the "explicit --encoding skips detection but still
// validates" contract.
func Decode(data []byte, hint Name) (string, Name, error) {
	if hint == "" {
		hint = Auto
	}
	if hint != Auto {
		text, err := decodeAs(data, hint)
		if err != nil {
			return "", hint, err
		}
		if !utf8.ValidString(text) {
			return "", hint, fmt.Errorf("encoding: decoded text is not valid UTF-8 under hint %q", hint)
		}
		return normalize(text), hint, nil
	}

	detected, body := detectBOM(data)
	if detected != "" {
		text, err := decodeAs(body, detected)
		if err != nil {
			return "", detected, err
		}
		return normalize(text), detected, nil
	}

	return detectByScore(data)
}

func detectBOM(data []byte) (Name, []byte) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return UTF8BOM, data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE):
		return UTF16LE, data[len(bomUTF16LE):]
	case bytes.HasPrefix(data, bomUTF16BE):
		return UTF16BE, data[len(bomUTF16BE):]
	default:
		return "", data
	}
}

// detectByScore tries UTF-8 first (the common case), then each remaining
// candidate, picking the decode that produces the highest printable-ASCII
// and valid-rune ratio, matching the spec's "text-quality scoring".
func detectByScore(data []byte) (string, Name, error) {
	if utf8.Valid(data) {
		return normalize(string(data)), UTF8, nil
	}

	candidates := []Name{UTF16LE, UTF16BE, CP1250}
	var bestText string
	var bestName Name
	bestScore := -1.0
	for _, name := range candidates {
		text, err := decodeAs(data, name)
		if err != nil {
			continue
		}
		score := textQualityScore(text)
		if score > bestScore {
			bestScore = score
			bestText = text
			bestName = name
		}
	}
	if bestName == "" {
		return "", "", fmt.Errorf("encoding: could not detect a usable encoding")
	}
	return normalize(bestText), bestName, nil
}

func decodeAs(data []byte, name Name) (string, error) {
	switch name {
	case UTF8, UTF8BOM, Auto, "":
		return string(data), nil
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().String(string(data))
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().String(string(data))
	case CP1250:
		return charmap.Windows1250.NewDecoder().String(string(data))
	default:
		return "", fmt.Errorf("encoding: unknown encoding %q", name)
	}
}

// textQualityScore rewards printable ASCII and valid runes, and penalizes
// the replacement character and control bytes a wrong-encoding guess tends
// to produce.
func textQualityScore(text string) float64 {
	if text == "" {
		return 0
	}
	var good, total int
	for _, r := range text {
		total++
		switch {
		case r == utf8.RuneError:
			good -= 5
		case r == '\n' || r == '\r' || r == '\t':
			good++
		case r >= 0x20 && r < 0x7f:
			good++
		case r >= 0xa0:
			good++ // accented letters, common in CP-1250 text
		default:
			good--
		}
	}
	return float64(good) / float64(total)
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
