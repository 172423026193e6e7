// Package transport implements subject-addressed publish/subscribe with
// durable, resumable consumers (spec component C3). The subject grammar
// (events.domain.<domain>.<aggregate>.<kind>, with "*" and ">" wildcards)
// is native NATS subject syntax, so the production implementation is a
// thin wrapper over nats.go JetStream durable consumers; a second,
// in-memory implementation of the same Transport interface backs tests
// without a running NATS server.
package transport
