// Package sensor turns raw per-frame eye, gaze and hand readings into stable
// semantic signals.
package sensor

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-companion/pkg/geom"
)

// ErrSourceUnavailable is returned when a sensor source cannot deliver.
var ErrSourceUnavailable = errors.New("sensor: source unavailable")

// Sample is one frame of decoded sensor input.
type Sample struct {
	LeftEyeConfidence  float64
	RightEyeConfidence float64
	BothEyesBlinking   bool

	LeftHandConfidence  float64
	RightHandConfidence float64
	LeftHandCenter      r3.Vec
	RightHandCenter     r3.Vec

	// GazeHitEntity is the id of the entity under the user's gaze, empty for none.
	GazeHitEntity string

	// HeadPosition and HeadForward are the user's head pose, the anchor for
	// orbiting and wander sampling.
	HeadPosition r3.Vec
	HeadForward  r3.Vec
}

// Inactive returns the sample reported when no input is available: eyes
// open, no blink, no hands, no gaze. The head pose of last is kept so the
// anchor does not jump.
func Inactive(last Sample) Sample {
	return Sample{
		LeftEyeConfidence:  1,
		RightEyeConfidence: 1,
		HeadPosition:       last.HeadPosition,
		HeadForward:        last.HeadForward,
	}
}

// Forward returns the head facing, defaulting to +Z when unset.
func (s Sample) Forward() r3.Vec {
	if geom.IsZero(s.HeadForward) {
		return geom.Forward
	}
	return geom.Unit(s.HeadForward)
}

// Source delivers samples. Poll must not block; ok is false when no fresh
// sample is available.
type Source interface {
	Poll() (Sample, bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (Sample, bool)

// Poll calls f.
func (f SourceFunc) Poll() (Sample, bool) { return f() }
