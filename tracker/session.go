package tracker

import (
	"go.uber.org/zap"
)

// Session owns all per-source tracker state for the life of one stream
// (§3 SessionState). It is not safe for concurrent use — per §5, a
// source's frame generator drives one Session's Update calls serially.
type Session struct {
	log *zap.Logger
	cfg Config

	sessionID    string
	currentFrame int

	tracks     map[string]*track
	trackOrder []string // insertion order, for greedy tie-breaks (§4.3)

	lostTracks map[string]*track

	ids   trackIDCounter
	scene *sceneChangeDetector

	strategy associator
}

// NewSession creates a Session for one source. log may be nil, in which
// case a no-op logger is used.
func NewSession(cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		log:        log.With(zap.String("component", "tracker.session")),
		cfg:        cfg,
		sessionID:  newSessionID(),
		tracks:     make(map[string]*track),
		lostTracks: make(map[string]*track),
		scene:      newSceneChangeDetector(),
	}
	s.strategy = strategyFor(cfg)
	s.log.Info("session created", zap.String("session_id", s.sessionID))
	return s
}

func strategyFor(cfg Config) associator {
	if cfg.UseMatrix {
		return hungarianAssociator{}
	}
	return greedyAssociator{}
}

// SessionID returns the session's random 16-bit hex identifier.
func (s *Session) SessionID() string {
	return s.sessionID
}

// Snapshot reports active/pending/lost track counts for host-side health
// reporting. It does not affect Update's contract (§4.6 design note: the
// host pulls state, the tracker never pushes).
type Snapshot struct {
	Active  int
	Pending int
	Lost    int
}

// Snapshot returns the current track-pool sizes.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{Lost: len(s.lostTracks)}
	for _, t := range s.tracks {
		if t.state == stateActive {
			snap.Active++
		} else {
			snap.Pending++
		}
	}
	return snap
}

// Update is the tracker's public contract (§4.6): a pure function of
// (SessionState before) x frame, mutating SessionState in place exactly
// once. settingsOverlay, if non-nil, is merged into the session's Config
// for this call only (§5).
func (s *Session) Update(frame Frame, basicOnly bool, settingsOverlay Settings) FrameResult {
	cfg := s.cfg.withOverlay(settingsOverlay)
	basicOnly = basicOnly || cfg.basicOnly()

	inputW, inputH := 0.0, 0.0
	if frame.InputDimension[0] > 0 && frame.InputDimension[1] > 0 {
		inputW, inputH = frame.InputDimension[0], frame.InputDimension[1]
	}

	trackable, passthrough := splitTrackable(frame.Detections)
	filtered := preFilter(s.log, trackable, inputW, inputH, cfg)

	var result FrameResult
	if basicOnly {
		result = s.basicResult(filtered)
	} else {
		result = s.fullResult(filtered, frame.Timestamp, cfg)
	}

	for _, p := range passthrough {
		result.Active = append(result.Active, ActiveEntry{Detection: p})
	}

	s.currentFrame++
	return result
}

// splitTrackable separates malformed/sentinel detections — missing a
// bounding box, or carrying the reserved "motion" className — from
// detections eligible for tracking (§4.6 failure handling, §7
// MalformedInput: excluded from tracking, passed through unchanged).
func splitTrackable(dets []Detection) (trackable, passthrough []Detection) {
	for _, d := range dets {
		if d.ClassName == MotionClassName || d.BoundingBox == nil {
			passthrough = append(passthrough, d)
			continue
		}
		trackable = append(trackable, d)
	}
	return trackable, passthrough
}

// basicResult implements §4.6's basicOnly bypass: pre-filter only, no
// lifecycle, no ids.
func (s *Session) basicResult(filtered []Detection) FrameResult {
	var result FrameResult
	for _, d := range filtered {
		result.Active = append(result.Active, ActiveEntry{Detection: d})
	}
	result.Active = appendMotionSentinels(result.Active, filtered)
	return result
}

// fullResult runs §4.2 (already done by the caller) -> §4.3 -> §4.4 ->
// §4.5.
func (s *Session) fullResult(filtered []Detection, now float64, cfg Config) FrameResult {
	assign := s.strategy.associate(filtered, s.tracks, s.lostTracks, s.trackOrder, cfg)

	newlyConfirmed := make(map[string]struct{})

	s.applyRevivals(assign, filtered)
	s.applyMatches(assign, filtered, now, cfg, newlyConfirmed)
	s.applyMisses(assign, cfg)
	s.registerNewTracks(assign, filtered, now, cfg, newlyConfirmed)
	s.ageLostTracks(cfg)

	var result FrameResult
	activeIDs := make(map[string]struct{})
	for _, id := range s.trackOrder {
		t, ok := s.tracks[id]
		if !ok {
			continue
		}
		switch t.state {
		case stateActive:
			result.Active = append(result.Active, t.toActiveEntry())
			activeIDs[id] = struct{}{}
		case statePending:
			result.Pending = append(result.Pending, t.toTrackedObject())
		}
	}

	if id, emitted := s.scene.evaluate(s.sessionID, s.currentFrame, now, activeIDs, newlyConfirmed); emitted {
		result.DetectionID = id
		result.hasDetection = true
		s.log.Debug("scene change emitted", zap.String("detection_id", id))
	}

	// Motion sentinels are keyed off every detection that survived
	// pre-filtering this frame, confirmed or not yet confirmed (§4.6; see
	// S1 in §8, where a single Pending detection still yields a boxed
	// sentinel).
	result.Active = appendMotionSentinels(result.Active, filtered)
	return result
}

// applyRevivals moves matched lostTracks entries back into tracks (§4.3:
// "revives the track (state -> Pending with hits retained, lostFrames = 0,
// moved back to tracks)"), then lets applyMatches fold in the measurement.
func (s *Session) applyRevivals(assign assignment, dets []Detection) {
	for detIdx, trkID := range assign.detToRevived {
		t, ok := s.lostTracks[trkID]
		if !ok {
			continue
		}
		delete(s.lostTracks, trkID)
		t.revive()
		s.tracks[trkID] = t
		s.trackOrder = append(s.trackOrder, trkID)
		assign.detToTrack[detIdx] = trkID
	}
}

func (s *Session) applyMatches(assign assignment, dets []Detection, now float64, cfg Config, newlyConfirmed map[string]struct{}) {
	for detIdx, trkID := range assign.detToTrack {
		t, ok := s.tracks[trkID]
		if !ok {
			continue
		}
		det := dets[detIdx]
		params := cfg.classParams(det.ClassName)
		wasPending := t.state == statePending
		t.applyMatch(det, now, params.MovementThreshold)
		if t.predictErr != nil {
			s.log.Warn("kalman update failed", zap.String("track_id", trkID), zap.Error(t.predictErr))
		}
		if wasPending && t.hits >= params.MinConfirmationFrames {
			t.state = stateActive
			newlyConfirmed[trkID] = struct{}{}
			s.log.Debug("track confirmed", zap.String("track_id", trkID))
		}
	}
}

// applyMisses advances every unmatched track's (active or pending)
// predicted position and evicts tracks that reach maxMisses into the lost
// pool (§4.4) — a track evicted this call is left for ageLostTracks to
// predict instead, so it isn't advanced twice in one frame.
func (s *Session) applyMisses(assign assignment, cfg Config) {
	matched := make(map[string]struct{}, len(assign.detToTrack))
	for _, id := range assign.detToTrack {
		matched[id] = struct{}{}
	}

	for _, id := range s.trackOrder {
		t, ok := s.tracks[id]
		if !ok {
			continue
		}
		if _, ok := matched[id]; ok {
			continue
		}
		t.applyMiss()
		if t.misses >= cfg.MaxMisses {
			// Leave the Kalman advance to ageLostTracks, which runs next and
			// treats every lostTracks entry (including this one) uniformly —
			// predicting here too would advance this frame's track twice.
			t.state = stateLost
			t.lostFrames = 0
			delete(s.tracks, id)
			s.lostTracks[id] = t
			s.log.Debug("track lost", zap.String("track_id", id))
		} else {
			t.predictForward()
		}
	}
	s.trackOrder = compactTrackOrder(s.trackOrder, s.tracks)
}

func compactTrackOrder(order []string, tracks map[string]*track) []string {
	out := order[:0]
	for _, id := range order {
		if _, ok := tracks[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// registerNewTracks allocates a new Pending track for every detection that
// matched neither an existing nor a lost track (§4.4 entry rule).
func (s *Session) registerNewTracks(assign assignment, dets []Detection, now float64, cfg Config, newlyConfirmed map[string]struct{}) {
	for i, det := range dets {
		if _, matched := assign.detToTrack[i]; matched {
			continue
		}
		id := s.ids.allocate()
		params := cfg.classParams(det.ClassName)
		t := newTrack(id, det, now, params.MinConfirmationFrames)
		s.tracks[id] = t
		s.trackOrder = append(s.trackOrder, id)
		if t.state == stateActive {
			newlyConfirmed[id] = struct{}{}
		}
		s.log.Debug("track created", zap.String("track_id", id), zap.String("class", det.ClassName))
	}
}

// ageLostTracks increments lostFrames for every lostTracks entry not
// revived this frame, and permanently evicts any that exceed
// maxLostFrames (§3 invariant 6, §4.4).
func (s *Session) ageLostTracks(cfg Config) {
	for id, t := range s.lostTracks {
		t.lostFrames++
		// Keep the Kalman-predicted centroid advancing while a track sits
		// in the lost pool, so the longer it has been missing the further
		// predictedBBox() drifts from its last-known box — the same
		// predict-every-frame idiom the teacher's bytetrack.go uses before
		// scoring re-acquisition candidates.
		t.predictForward()
		if t.lostFrames > cfg.MaxLostFrames {
			delete(s.lostTracks, id)
			s.log.Debug("track evicted", zap.String("track_id", id))
		}
	}
}

// appendMotionSentinels implements §4.6's motion pseudo-detection rule:
// one sentinel per detection in source with a box, or a single bare
// sentinel if there are none.
func appendMotionSentinels(active []ActiveEntry, source []Detection) []ActiveEntry {
	boxed := 0
	for _, d := range source {
		if d.BoundingBox != nil {
			boxed++
			active = append(active, ActiveEntry{Detection: Detection{
				ClassName:   MotionClassName,
				Score:       1,
				BoundingBox: d.BoundingBox,
			}})
		}
	}
	if boxed == 0 {
		active = append(active, ActiveEntry{Detection: Detection{
			ClassName: MotionClassName,
			Score:     1,
		}})
	}
	return active
}
