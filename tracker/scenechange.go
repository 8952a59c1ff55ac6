package tracker

import "fmt"

// sceneChangeRefreshSeconds is the §4.5 clause (d) periodic-refresh
// interval, flagged in §9 as an intentional addition over the source's
// inconsistent behavior.
const sceneChangeRefreshSeconds = 5.0

// sceneChangeDetector holds the state needed across frames to decide
// whether to emit a fresh detectionId (§4.5).
type sceneChangeDetector struct {
	lastActiveIDs   map[string]struct{}
	lastDetectionAt float64
	haveLastEmit    bool
}

func newSceneChangeDetector() *sceneChangeDetector {
	return &sceneChangeDetector{lastActiveIDs: map[string]struct{}{}}
}

// evaluate implements §4.5's four emission conditions and updates
// lastActiveIds/lastDetectionId as a side effect.
func (s *sceneChangeDetector) evaluate(sessionID string, frameNum int, now float64, activeIDs map[string]struct{}, newlyConfirmed map[string]struct{}) (id string, emitted bool) {
	emit := false

	if len(newlyConfirmed) > 0 {
		emit = true
	}
	if len(s.lastActiveIDs) == 0 && len(activeIDs) > 0 {
		emit = true
	}
	for id := range s.lastActiveIDs {
		if _, still := activeIDs[id]; !still {
			emit = true
			break
		}
	}
	if !emit && len(activeIDs) > 0 && s.haveLastEmit && now-s.lastDetectionAt > sceneChangeRefreshSeconds {
		emit = true
	}

	s.lastActiveIDs = copyIDSet(activeIDs)

	if emit {
		s.lastDetectionAt = now
		s.haveLastEmit = true
		return fmt.Sprintf("%s-%d", sessionID, frameNum), true
	}
	return "", false
}

func copyIDSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
