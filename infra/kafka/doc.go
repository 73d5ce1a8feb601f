// Package kafka holds the two Kafka sinks the broadcaster can publish
// sampled quotes to: one on IBM/sarama and one on segmentio/kafka-go.
package kafka
