// Package recall archives terminal task results in a full-text index
// so past work can be searched and fed back into new instructions. The
// engine core never depends on it; the archive follows the result bus
// as an external collaborator, the same way a persistence layer would.
package recall
