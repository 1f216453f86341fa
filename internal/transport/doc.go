// Package transport moves partial registries between processes.
//
// A producer encodes its registry as a JSON Envelope and publishes it on a
// NATS subject; a Collector subscribed to that subject decodes every
// envelope and merges it into one consolidated registry. Paths travel as
// their key chains and are rebuilt on arrival, so a decoded path shares no
// state with the sender's path tree.
package transport
