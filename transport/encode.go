package transport

import (
	"encoding/base64"
	"fmt"
	"os"
)

// EncodeFile reads the file at path fully into memory and returns its standard base64
// encoding. The whole-file read is inherent to the upload wire format, which is why
// maxBytes bounds the practical file size instead of a streaming encoder.
func EncodeFile(path string, maxBytes int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: stat %s: %v", ErrEncode, path, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", fmt.Errorf("%w: %w: %s is %d bytes (limit %d)", ErrEncode, ErrFileTooLarge, path, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrEncode, path, err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
