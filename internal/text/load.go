package text

import (
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LoadFile reads path and returns its contents as UTF-8 text, stripping and
// transcoding a UTF-16 byte-order mark if one is present. Source files on
// disk are not guaranteed to be UTF-8 even though the in-memory buffer
// always is; editors on Windows routinely save UTF-16 BOM files.
func LoadFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return decodeBOM(raw)
}

func decodeBOM(raw []byte) (string, error) {
	bomAwareUTF16 := unicode.BOMOverride(unicode.UTF8.NewDecoder())

	decoded, _, err := transform.Bytes(bomAwareUTF16, raw)
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}
