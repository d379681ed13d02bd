package quality

import (
	"fmt"
	"strings"
)

// Tier is an ordered quality bucket. Higher values always trump lower ones.
type Tier int

const (
	TierUnknown Tier = iota
	TierLossyLow
	TierLossyMid
	TierLossyHigh
	TierLosslessCD
	TierLosslessHiRes
)

func (t Tier) String() string {
	switch t {
	case TierLossyLow:
		return "Lossy Low"
	case TierLossyMid:
		return "Lossy Mid"
	case TierLossyHigh:
		return "Lossy High"
	case TierLosslessCD:
		return "Lossless CD"
	case TierLosslessHiRes:
		return "Lossless Hi-Res"
	default:
		return "Unknown"
	}
}

// BitrateMode distinguishes constant from variable bitrate lossy encodes.
type BitrateMode string

const (
	ModeUnknown BitrateMode = ""
	ModeCBR     BitrateMode = "CBR"
	ModeVBR     BitrateMode = "VBR"
)

// ParseBitrateMode maps free-form mode strings to a BitrateMode.
func ParseBitrateMode(value string) BitrateMode {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "CBR":
		return ModeCBR
	case "VBR":
		return ModeVBR
	default:
		return ModeUnknown
	}
}

var losslessFormats = map[string]struct{}{
	"flac": {}, "alac": {}, "wav": {}, "aiff": {}, "aif": {},
}

var lossyFormats = map[string]struct{}{
	"mp3": {}, "m4a": {}, "aac": {}, "ogg": {}, "opus": {},
}

// Score is the derived quality classification for one audio stream. It is
// ephemeral: recomputed whenever a comparison is needed, never persisted.
type Score struct {
	Tier         Tier
	Lossless     bool
	Format       string
	BitrateKbps  int
	SampleRateHz int
	BitDepth     int
	Mode         BitrateMode
}

// Classify derives a Score from stream properties. Absent numeric inputs are
// passed as zero. Bitrates above 10000 are assumed to be bits per second and
// are normalized to kbps; upstream sources are inconsistent about the unit.
func Classify(format string, bitrateKbps, sampleRateHz, bitDepth int, mode BitrateMode) Score {
	format = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(format, ".")))
	if bitrateKbps > 10000 {
		bitrateKbps /= 1000
	}

	score := Score{
		Format:       format,
		BitrateKbps:  bitrateKbps,
		SampleRateHz: sampleRateHz,
		BitDepth:     bitDepth,
		Mode:         mode,
	}

	if _, ok := losslessFormats[format]; ok {
		score.Lossless = true
		if bitDepth > 16 || sampleRateHz > 48000 {
			score.Tier = TierLosslessHiRes
		} else {
			score.Tier = TierLosslessCD
		}
		return score
	}

	if _, ok := lossyFormats[format]; ok {
		score.Tier = classifyLossy(bitrateKbps, mode)
		return score
	}

	score.Tier = TierUnknown
	return score
}

// classifyLossy buckets a lossy stream by bitrate. VBR thresholds sit lower
// than CBR because VBR encoders report average bitrate; the 245/180 vs
// 320/192 split follows community tracker convention.
func classifyLossy(bitrateKbps int, mode BitrateMode) Tier {
	if bitrateKbps <= 0 {
		return TierUnknown
	}
	high, mid := 320, 192
	if mode == ModeVBR {
		high, mid = 245, 180
	}
	switch {
	case bitrateKbps >= high:
		return TierLossyHigh
	case bitrateKbps >= mid:
		return TierLossyMid
	default:
		return TierLossyLow
	}
}

// Verdict is the outcome of comparing candidate a against incumbent b.
type Verdict int

const (
	VerdictEqual Verdict = iota
	VerdictTrumps
	VerdictTrumpedBy
)

func (v Verdict) String() string {
	switch v {
	case VerdictTrumps:
		return "trumps"
	case VerdictTrumpedBy:
		return "trumped_by"
	default:
		return "equal"
	}
}

// Compare orders two scores deterministically and explains the result.
// Differing tiers decide outright. Within a lossless tier, sample rate then
// bit depth break the tie; within a lossy tier, bitrate then mode (CBR beats
// VBR at identical bitrate, since CBR cannot dip on transients). Mixed
// lossless/lossy pairs are always separated at the tier step because every
// lossless tier is above every lossy tier.
func Compare(a, b Score) (Verdict, string) {
	if a.Tier != b.Tier {
		if a.Tier > b.Tier {
			return VerdictTrumps, fmt.Sprintf("Higher quality tier: %s > %s", a.Tier, b.Tier)
		}
		return VerdictTrumpedBy, fmt.Sprintf("Lower quality tier: %s < %s", a.Tier, b.Tier)
	}

	if a.Lossless && b.Lossless {
		if a.SampleRateHz != b.SampleRateHz {
			if a.SampleRateHz > b.SampleRateHz {
				return VerdictTrumps, fmt.Sprintf("Higher sample rate: %dHz > %dHz", a.SampleRateHz, b.SampleRateHz)
			}
			return VerdictTrumpedBy, fmt.Sprintf("Lower sample rate: %dHz < %dHz", a.SampleRateHz, b.SampleRateHz)
		}
		if a.BitDepth != b.BitDepth {
			if a.BitDepth > b.BitDepth {
				return VerdictTrumps, fmt.Sprintf("Higher bit depth: %dbit > %dbit", a.BitDepth, b.BitDepth)
			}
			return VerdictTrumpedBy, fmt.Sprintf("Lower bit depth: %dbit < %dbit", a.BitDepth, b.BitDepth)
		}
		return VerdictEqual, "Equal quality"
	}

	if a.BitrateKbps != b.BitrateKbps {
		if a.BitrateKbps > b.BitrateKbps {
			return VerdictTrumps, fmt.Sprintf("Higher bitrate: %dkbps > %dkbps", a.BitrateKbps, b.BitrateKbps)
		}
		return VerdictTrumpedBy, fmt.Sprintf("Lower bitrate: %dkbps < %dkbps", a.BitrateKbps, b.BitrateKbps)
	}
	if a.Mode != b.Mode {
		if a.Mode == ModeCBR && b.Mode == ModeVBR {
			return VerdictTrumps, fmt.Sprintf("CBR preferred over VBR at %dkbps", a.BitrateKbps)
		}
		if a.Mode == ModeVBR && b.Mode == ModeCBR {
			return VerdictTrumpedBy, fmt.Sprintf("VBR loses to CBR at %dkbps", a.BitrateKbps)
		}
	}
	return VerdictEqual, "Equal quality"
}

// Describe summarizes a score for human-readable duplicate reports.
func Describe(s Score) string {
	parts := []string{s.Tier.String()}
	if s.Format != "" {
		parts = append(parts, strings.ToUpper(s.Format))
	}
	if s.Lossless {
		if s.SampleRateHz > 0 {
			parts = append(parts, fmt.Sprintf("%dHz", s.SampleRateHz))
		}
		if s.BitDepth > 0 {
			parts = append(parts, fmt.Sprintf("%dbit", s.BitDepth))
		}
	} else if s.BitrateKbps > 0 {
		label := fmt.Sprintf("%dkbps", s.BitrateKbps)
		if s.Mode != ModeUnknown {
			label += " " + string(s.Mode)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " ")
}
