// Package analysis decouples the reconciler from deferred feature
// extraction: the reconciler enqueues entry ids fire-and-forget, and a
// downstream consumer drains them.
package analysis
