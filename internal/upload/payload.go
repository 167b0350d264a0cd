package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrMissingPayload = errors.New("base64 missing")

var base64Normalizer = strings.NewReplacer(
	"\n", "", "\r", "", "\t", "", " ", "",
	"-", "+", "_", "/",
)

// DecodePayload decodes a base64 file body. Whitespace, missing padding and
// the URL-safe alphabet are tolerated. label names the payload in errors.
func DecodePayload(data, label string) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("%s %w", label, ErrMissingPayload)
	}

	normalized := strings.TrimRight(base64Normalizer.Replace(data), "=")

	out, err := base64.RawStdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%s base64 invalid: %w", label, err)
	}

	return out, nil
}
