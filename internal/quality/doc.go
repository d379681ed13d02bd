// Package quality classifies an audio stream's technical quality into an
// ordered tier and compares two classifications deterministically, producing
// the trumping verdicts used when arbitrating duplicate recordings.
package quality
