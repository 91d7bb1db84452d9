package mcpserver

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxPanoramaSize bounds one imported payload. Phone panoramas run tens of
// megabytes; stitched DSLR captures can be larger.
const maxPanoramaSize = 100 << 20

var mimeToExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// readSource resolves a tool source argument: either a base64 data URI or
// a path to a local image file. Returns the payload and an extension hint.
func readSource(source string) ([]byte, string, error) {
	if strings.HasPrefix(source, "data:") {
		return decodeDataURI(source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, "", fmt.Errorf("read source: %w", err)
	}
	if len(data) > maxPanoramaSize {
		return nil, "", fmt.Errorf("payload too large: %d bytes (max %d)", len(data), maxPanoramaSize)
	}
	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" {
		ext = ".jpg"
	}
	return data, ext, nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI and returns
// the payload with the extension implied by its MIME type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("source must be a data: URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxPanoramaSize {
		return nil, "", fmt.Errorf("payload too large: %d bytes (max %d)", len(data), maxPanoramaSize)
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}
