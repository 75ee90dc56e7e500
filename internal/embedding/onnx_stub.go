//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNX stub type when built without CGO (see onnx.go for the real implementation).
type ONNX struct{}

// NewONNX returns an error when built without CGO; the tiered chain then
// runs without the local model tier.
func NewONNX(_ string, _, _, _ int) (*ONNX, error) {
	return nil, errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Name returns the tier identifier.
func (e *ONNX) Name() string { return "onnx" }

// Available reports false without CGO.
func (e *ONNX) Available() bool { return false }

// EmbedBatch is not implemented without CGO.
func (e *ONNX) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errors.New("ONNX embedder not available")
}

// Close is a no-op for the stub.
func (e *ONNX) Close() error { return nil }
