package metadata

import (
	"os"

	flac "github.com/go-flac/go-flac/v2"
	mp3 "github.com/hajimehoshi/go-mp3"

	"crate/internal/logging"
)

// readStreamProperties fills sample rate, bit depth, duration, and bitrate
// where the container exposes them. Failures leave the fields zero; the
// quality scorer treats zero as absent.
func (e *TagExtractor) readStreamProperties(path string, fields *Fields) {
	switch fields.Format {
	case "flac":
		e.readFlacStreamInfo(path, fields)
	case "mp3":
		e.readMP3StreamInfo(path, fields)
	}
}

func (e *TagExtractor) readFlacStreamInfo(path string, fields *Fields) {
	f, err := flac.ParseFile(path)
	if err != nil {
		e.logger.Debug("flac parse failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return
	}
	info, err := f.GetStreamInfo()
	if err != nil {
		e.logger.Debug("flac stream info missing", logging.String(logging.FieldPath, path), logging.Error(err))
		return
	}
	fields.SampleRateHz = info.SampleRate
	fields.BitDepth = info.BitDepth
	if info.SampleRate > 0 {
		fields.DurationSeconds = float64(info.SampleCount) / float64(info.SampleRate)
	}
}

func (e *TagExtractor) readMP3StreamInfo(path string, fields *Fields) {
	f, err := os.Open(path)
	if err != nil {
		e.logger.Debug("mp3 open failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		e.logger.Debug("mp3 decode failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return
	}
	rate := dec.SampleRate()
	if rate <= 0 {
		return
	}
	fields.SampleRateHz = rate

	// Decoded output is 16-bit stereo, four bytes per sample.
	const sampleSize = 4
	samples := dec.Length() / sampleSize
	if samples <= 0 {
		return
	}
	duration := float64(samples) / float64(rate)
	fields.DurationSeconds = duration

	// Average bitrate over the whole file. The encoding mode stays
	// unknown, which the quality scorer resolves with the stricter CBR
	// thresholds.
	if info, err := os.Stat(path); err == nil && duration > 0 {
		fields.BitrateKbps = int(float64(info.Size())*8/duration/1000 + 0.5)
	}
}
