package photoproof

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// EncodeDataURL creates a data: URI from bytes and MIME type. This is the
// storage format for submitted photo payloads.
func EncodeDataURL(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// sniffMIME detects an upload's MIME type from its leading bytes.
func sniffMIME(data []byte) string {
	return http.DetectContentType(data)
}

// isBlank reports whether s is empty or whitespace only.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
