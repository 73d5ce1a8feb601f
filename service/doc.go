// Package service hosts the feed: the single producer that owns the
// write side of the quote cell. Everything else in the process reads
// the latest quote through the feed's Reader.
//
// It is decoupled from network transports; gRPC and Kafka consumers
// live in api/grpcserver and jobs/broadcaster.
package service
