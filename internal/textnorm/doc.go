// Package textnorm canonicalizes free-text strings (artist, album, title)
// into matching keys that are stable across case, diacritics, and
// punctuation variants. Normalized output is never shown to users.
package textnorm
