// Package grpcserver exposes the quote cell over gRPC: a one-shot
// Latest read and a polling Watch stream.
package grpcserver
