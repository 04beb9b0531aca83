// Package testutil contains in-memory fakes of the event store and the engine
// transport, plus a shared journal for asserting the order in which they were
// called. They are not intended for production usage.
package testutil
