package tracker

// greedyAssociator implements the default Greedy-IoU strategy (§4.3).
type greedyAssociator struct{}

func (greedyAssociator) associate(dets []Detection, tracks, lostTracks map[string]*track, trackOrder []string, cfg Config) assignment {
	result := newAssignment()
	assignedTrack := make(map[string]struct{}, len(tracks))
	assignedLost := make(map[string]struct{}, len(lostTracks))

	for i, det := range dets {
		if det.BoundingBox == nil {
			continue
		}
		threshold := cfg.classParams(det.ClassName).IoUThreshold

		if id, ok := bestMatch(det, trackOrder, tracks, assignedTrack, threshold); ok {
			result.detToTrack[i] = id
			assignedTrack[id] = struct{}{}
			continue
		}

		// A fast-moving object can shift its centroid clear outside the
		// previous box — IoU drops to 0 even though it is plainly the
		// same object. Fall back to a distance gate bounded by the
		// detection's own diagonal before giving up on the active pool,
		// the same idea the teacher's SimpleTracker/IoUTracker use
		// (distance-bounded re-acquisition as a second pass after IoU).
		if id, ok := nearestWithinDiagonal(det, trackOrder, tracks, assignedTrack); ok {
			result.detToTrack[i] = id
			assignedTrack[id] = struct{}{}
			continue
		}

		// Lost-track revival scores against the Kalman-predicted box, not
		// the stale last-known one (§4.3's "attempt the same against
		// lostTracks", mirroring the teacher's predict-then-match idiom in
		// bytetrack.go).
		if id, ok := bestMatchPredicted(det, lostOrder(lostTracks), lostTracks, assignedLost, threshold); ok {
			result.detToRevived[i] = id
			assignedLost[id] = struct{}{}
		}
	}
	return result
}

// bestMatch scans order (insertion order) for the matching-class track
// with the highest IoU against det that strictly exceeds threshold and is
// not already assigned this frame. Iterating `order` in insertion order
// and only updating on strict improvement (">") gives ties-by-insertion-
// order per §4.3.
func bestMatch(det Detection, order []string, pool map[string]*track, assigned map[string]struct{}, threshold float64) (string, bool) {
	return bestMatchUsing(det, order, pool, assigned, threshold, func(t *track) *BoundingBox {
		return t.detection.BoundingBox
	})
}

// bestMatchPredicted is bestMatch scored against each candidate's
// Kalman-predicted bounding box instead of its last-known one — used only
// for lost-track re-acquisition, where the candidate may have drifted
// several frames since it was last actually seen.
func bestMatchPredicted(det Detection, order []string, pool map[string]*track, assigned map[string]struct{}, threshold float64) (string, bool) {
	return bestMatchUsing(det, order, pool, assigned, threshold, func(t *track) *BoundingBox {
		if t.detection.BoundingBox == nil {
			return nil
		}
		b := t.predictedBBox()
		return &b
	})
}

// bestMatchUsing is bestMatch/bestMatchPredicted's shared scan, scoring
// each candidate's box as returned by boxOf.
func bestMatchUsing(det Detection, order []string, pool map[string]*track, assigned map[string]struct{}, threshold float64, boxOf func(*track) *BoundingBox) (string, bool) {
	bestID := ""
	bestIoU := threshold
	found := false
	for _, id := range order {
		cand, ok := pool[id]
		if !ok {
			continue
		}
		if _, taken := assigned[id]; taken {
			continue
		}
		if cand.detection.ClassName != det.ClassName {
			continue
		}
		candBox := boxOf(cand)
		if candBox == nil {
			continue
		}
		v := IoU(*det.BoundingBox, *candBox)
		if v > bestIoU {
			bestIoU = v
			bestID = id
			found = true
		}
	}
	return bestID, found
}

// nearestWithinDiagonal finds the nearest same-class, unassigned track
// whose centroid lies within one of the detection's diagonal lengths of
// the detection's centroid. It is consulted only when no track cleared
// the IoU bar, and ties are broken by insertion order like bestMatch.
func nearestWithinDiagonal(det Detection, order []string, pool map[string]*track, assigned map[string]struct{}) (string, bool) {
	if det.BoundingBox == nil {
		return "", false
	}
	detCenter := Centroid(*det.BoundingBox)
	maxDist := Diagonal(*det.BoundingBox)

	bestID := ""
	bestDist := maxDist
	found := false
	for _, id := range order {
		cand, ok := pool[id]
		if !ok {
			continue
		}
		if _, taken := assigned[id]; taken {
			continue
		}
		if cand.detection.ClassName != det.ClassName {
			continue
		}
		if cand.detection.BoundingBox == nil {
			continue
		}
		d := Distance(detCenter, Centroid(*cand.detection.BoundingBox))
		if d > maxDist {
			continue
		}
		if !found || d < bestDist {
			bestDist = d
			bestID = id
			found = true
		}
	}
	return bestID, found
}

// lostOrder is a stable (deterministic) ordering of a lost-tracks map's
// keys, used only so re-acquisition ties are reproducible across calls —
// map iteration order in Go is randomized.
func lostOrder(lost map[string]*track) []string {
	order := make([]string, 0, len(lost))
	for id := range lost {
		order = append(order, id)
	}
	sortTrackIDs(order)
	return order
}
