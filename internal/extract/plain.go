package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

var (
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
	lineEndingNorm = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// extractPlain decodes text files. The byte order mark is dropped, invalid UTF-8
// becomes U+FFFD, and CRLF or CR line endings become LF so chunking sees one line per line.
func extractPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return lineEndingNorm.Replace(text), nil
}
