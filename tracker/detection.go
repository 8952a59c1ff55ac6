package tracker

// MotionClassName is the reserved class name for motion pseudo-detections.
// A detection carrying this class name is never tracked; it is always
// passed through (§4.6).
const MotionClassName = "motion"

// History carries the caller-supplied first/last-seen timestamps that may
// accompany an input detection. It is opaque to the tracker: it is never
// read or written by any tracking stage, only preserved verbatim.
type History struct {
	FirstSeen float64
	LastSeen  float64
}

// Detection is one box+class+score reported by the upstream detector for
// the current frame.
type Detection struct {
	ClassName   string
	Score       float64
	BoundingBox *BoundingBox
	Label       string
	History     *History
}

// Movement describes a track's first/last-seen timestamps and whether its
// centroid shifted enough to be considered moving this frame.
type Movement struct {
	FirstSeen float64
	LastSeen  float64
	Moving    bool
}

// TrackedObject is a Detection with tracking identity and movement
// classification attached — the shape of FrameResult.Pending elements and
// of confirmed tracks before they are flattened into ActiveEntry (§3, §6).
type TrackedObject struct {
	Detection
	ID       string
	Movement Movement
}

// ActiveEntry is one element of FrameResult.Active. A confirmed track
// carries ID and Movement; a motion pseudo-detection (ClassName ==
// MotionClassName) carries neither — per §4.6 it is "never associated and
// never enter[s] the pre-filter".
type ActiveEntry struct {
	Detection
	ID       string
	Movement Movement
	isTrack  bool
}

// IsTrack reports whether this entry is a confirmed track rather than a
// motion pseudo-detection.
func (e ActiveEntry) IsTrack() bool {
	return e.isTrack
}

// Frame wraps one set of raw detections together with the input image
// dimensions they were computed against.
type Frame struct {
	Detections     []Detection
	InputDimension [2]float64 // [width, height]
	Timestamp      float64
}

// FrameResult is the tracker's per-frame output (§3, §4.6).
type FrameResult struct {
	Active       []ActiveEntry
	Pending      []TrackedObject
	DetectionID  string
	hasDetection bool
}

// HasDetectionID reports whether a fresh scene-change token was emitted
// this frame.
func (r FrameResult) HasDetectionID() bool {
	return r.hasDetection
}
