// Package redis connects instances of the overlay API through Redis Pub/Sub.
//
// Committed overlay changes are published on a single channel; every instance
// subscribes and relays events from its peers to its own websocket viewers.
// The client carries a metrics hook and a failsafe-go circuit breaker hook.
package redis
