package tracker

import (
	kalmanfilter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// trackState is the §4.4 state machine's state.
type trackState int

const (
	statePending trackState = iota
	stateActive
	stateLost
)

// track is the tracker's internal mutable record for one identity. The
// exported TrackedObject/ActiveEntry shapes are projections of it.
type track struct {
	id        string
	detection Detection
	state     trackState

	hits       int
	misses     int
	lostFrames int

	movement Movement

	// predicted is a Kalman-filter-maintained estimate of the track's
	// centroid, advanced one step per frame regardless of association
	// outcome. It is consulted only by the association engine's
	// lost-track re-acquisition path (§4.3) — it never substitutes for
	// the detection-derived boundingBox/className/label/score that §4.4
	// assigns verbatim on a match.
	predicted  Point
	kalman     *kalmanfilter.Kalman2D
	predictErr error
}

// newTrack creates a new Pending track from an unmatched detection, per
// §4.4's entry rule. If minConfirmationFrames <= 1 it is immediately
// confirmed (the documented edge rule).
func newTrack(id string, det Detection, now float64, minConfirmationFrames int) *track {
	center := Point{}
	if det.BoundingBox != nil {
		center = Centroid(*det.BoundingBox)
	}
	kf := kalmanfilter.NewKalman2D(1.0, 1.0, 1.0, 2.0, 0.1, 0.1, kalmanfilter.WithState2D(center.X, center.Y))

	t := &track{
		id:        id,
		detection: det,
		state:     statePending,
		hits:      1,
		misses:    0,
		movement:  Movement{FirstSeen: now, Moving: false},
		predicted: center,
		kalman:    kf,
	}
	if minConfirmationFrames <= 1 {
		t.state = stateActive
	}
	return t
}

// predictForward advances the Kalman filter one step without folding in a
// measurement. Called once per frame for every track, matched or not,
// mirroring the teacher's PredictNextPosition/Update split.
func (t *track) predictForward() {
	t.kalman.Predict()
	x, y := t.kalman.GetState()
	t.predicted = Point{X: x, Y: y}
}

// applyMatch updates the track from an associated detection per §4.4:
// boundingBox/className/label/score/history are assigned verbatim from
// the matched detection, hits increments, misses resets, movement is
// recomputed from the centroid shift, and Pending->Active confirmation is
// evaluated by the caller (it needs minConfirmationFrames, which the
// track itself does not store).
func (t *track) applyMatch(det Detection, now, movementThreshold float64) {
	prevCenter := Point{}
	if t.detection.BoundingBox != nil {
		prevCenter = Centroid(*t.detection.BoundingBox)
	}
	newCenter := Point{}
	if det.BoundingBox != nil {
		newCenter = Centroid(*det.BoundingBox)
	}

	t.detection = det
	t.hits++
	t.misses = 0
	t.movement.Moving = Distance(prevCenter, newCenter) >= movementThreshold
	t.movement.LastSeen = now

	t.kalman.Predict()
	if err := t.kalman.Update(newCenter.X, newCenter.Y); err != nil {
		t.predictErr = errors.Wrapf(err, "track %s: kalman update", t.id)
	} else {
		t.predictErr = nil
	}
	x, y := t.kalman.GetState()
	t.predicted = Point{X: x, Y: y}
}

// applyMiss updates the track for a frame in which it was not associated.
func (t *track) applyMiss() {
	t.misses++
	t.movement.Moving = false
}

// revive brings a lost track back into the active pool on re-acquisition
// (§4.3): hits are retained, lostFrames resets, state returns to Pending
// (the caller re-evaluates confirmation immediately afterward via
// applyMatch's normal Pending->Active path if hits already clears the
// bar).
func (t *track) revive() {
	t.state = statePending
	t.lostFrames = 0
}

// predictedBBox returns a box of the same size as the track's last known
// detection, centered on the Kalman-predicted centroid — used only to
// score lost-track re-acquisition candidates.
func (t *track) predictedBBox() BoundingBox {
	if t.detection.BoundingBox == nil {
		return BoundingBox{}
	}
	b := *t.detection.BoundingBox
	return BoundingBox{
		X:      t.predicted.X - b.Width/2.0,
		Y:      t.predicted.Y - b.Height/2.0,
		Width:  b.Width,
		Height: b.Height,
	}
}

// toTrackedObject projects the internal track into the public
// TrackedObject shape.
func (t *track) toTrackedObject() TrackedObject {
	return TrackedObject{
		Detection: t.detection,
		ID:        t.id,
		Movement:  t.movement,
	}
}

// toActiveEntry projects a confirmed track into the public ActiveEntry
// shape.
func (t *track) toActiveEntry() ActiveEntry {
	return ActiveEntry{
		Detection: t.detection,
		ID:        t.id,
		Movement:  t.movement,
		isTrack:   true,
	}
}
