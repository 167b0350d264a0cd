package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

var (
	RequestIDSize     = 16
	requestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// RequestID returns a random id used to correlate log lines of one request.
func RequestID() string {
	return gonanoid.MustGenerate(requestIDAlphabet, RequestIDSize)
}
