// Package bus provides in-process pub/sub for engine events.
//
// The engine publishes task results and lifecycle notifications on
// subjects like "tasks.result.<id>" and "tasks.terminal". Subscribers
// get channel-based delivery; a full subscriber buffer drops messages
// rather than blocking the publisher. Queue subscriptions load-balance
// a subject across a named group of consumers.
package bus
