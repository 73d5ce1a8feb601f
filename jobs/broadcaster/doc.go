// Package broadcaster is a polling consumer of the quote cell: it
// forwards each new quote version to Kafka through a pebble outbox.
package broadcaster
