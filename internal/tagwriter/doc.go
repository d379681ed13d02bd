// Package tagwriter writes metadata fields back into audio files on disk:
// ID3v2 frames for MP3 and Vorbis comments for FLAC.
package tagwriter
