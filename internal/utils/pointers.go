package utils

import (
	"encoding/json"
	"fmt"
)

func StringPtr(s string) *string {
	return &s
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func WrapErrorf(err error, msg string, args ...any) error {
	return WrapError(err, fmt.Sprintf(msg, args...))
}

func MustMarshalJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("failed to marshal to JSON: %w", err))
	}
	return data
}
