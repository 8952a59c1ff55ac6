package tracker

import (
	"github.com/arthurkushman/go-hungarian"
)

// hungarianAssociator implements the Hungarian (global minimum-cost / here
// expressed as maximum-IoU) assignment strategy (§4.3). It ignores class
// at the matrix-construction stage and discards any pair post-hoc where
// classes differ or IoU does not exceed the threshold for the detection's
// class, exactly as specified.
//
// Lost-track reacquisition is skipped unless Config.HungarianReacquire is
// set, per §4.3/§9 ("the source silently skips it... implementers may add
// it, but must mirror the greedy semantics").
type hungarianAssociator struct{}

func (hungarianAssociator) associate(dets []Detection, tracks, lostTracks map[string]*track, trackOrder []string, cfg Config) assignment {
	result := newAssignment()
	if len(dets) == 0 || len(trackOrder) == 0 {
		return maybeReacquireHungarian(result, dets, lostTracks, cfg)
	}

	matrix := buildIoUMatrix(dets, trackOrder, tracks)
	matches := solveAssignment(matrix, len(dets), len(trackOrder))

	for _, m := range matches {
		detIdx, trkIdx := m[0], m[1]
		if detIdx >= len(dets) || trkIdx >= len(trackOrder) {
			continue
		}
		det := dets[detIdx]
		trkID := trackOrder[trkIdx]
		trk := tracks[trkID]
		if trk == nil || det.BoundingBox == nil || trk.detection.BoundingBox == nil {
			continue
		}
		if det.ClassName != trk.detection.ClassName {
			continue
		}
		threshold := cfg.classParams(det.ClassName).IoUThreshold
		cost := 1.0 - IoU(*det.BoundingBox, *trk.detection.BoundingBox)
		if cost >= 1.0-threshold {
			continue
		}
		result.detToTrack[detIdx] = trkID
	}

	return maybeReacquireHungarian(result, dets, lostTracks, cfg)
}

// maybeReacquireHungarian mirrors the greedy strategy's lost-track
// re-acquisition for any detection the primary pass left unmatched, when
// Config.HungarianReacquire is enabled.
func maybeReacquireHungarian(result assignment, dets []Detection, lostTracks map[string]*track, cfg Config) assignment {
	if !cfg.HungarianReacquire || len(lostTracks) == 0 {
		return result
	}
	order := lostOrder(lostTracks)
	assignedLost := make(map[string]struct{}, len(lostTracks))
	for i, det := range dets {
		if _, matched := result.detToTrack[i]; matched {
			continue
		}
		if det.BoundingBox == nil {
			continue
		}
		threshold := cfg.classParams(det.ClassName).IoUThreshold
		// Score against the Kalman-predicted box, same as the greedy
		// strategy's lost-track revival (§4.3/§9: "must mirror the greedy
		// semantics").
		if id, ok := bestMatchPredicted(det, order, lostTracks, assignedLost, threshold); ok {
			result.detToRevived[i] = id
			assignedLost[id] = struct{}{}
		}
	}
	return result
}

// buildIoUMatrix builds a |dets| x |trackOrder| matrix of IoU scores, 0
// when either box is missing.
func buildIoUMatrix(dets []Detection, trackOrder []string, tracks map[string]*track) [][]float64 {
	matrix := make([][]float64, len(dets))
	for i, det := range dets {
		row := make([]float64, len(trackOrder))
		if det.BoundingBox != nil {
			for j, id := range trackOrder {
				trk := tracks[id]
				if trk != nil && trk.detection.BoundingBox != nil {
					row[j] = IoU(*det.BoundingBox, *trk.detection.BoundingBox)
				}
			}
		}
		matrix[i] = row
	}
	return matrix
}

// solveAssignment pads a rectangular |detections| x |tracks| score matrix
// to square (teacher's approach in bytetrack.go) and solves it with
// go-hungarian's SolveMax, returning [detIdx, trackIdx] pairs.
func solveAssignment(matrix [][]float64, numDets, numTracks int) [][2]int {
	size := numDets
	if numTracks > size {
		size = numTracks
	}
	padded := make([][]float64, size)
	for i := 0; i < size; i++ {
		padded[i] = make([]float64, size)
		if i < numDets {
			copy(padded[i], matrix[i])
		}
	}

	assignments := hungarian.SolveMax(padded)
	matches := make([][2]int, 0, len(assignments))
	for rowIdx, rowMap := range assignments {
		for colIdx := range rowMap {
			if rowIdx < numDets && colIdx < numTracks {
				matches = append(matches, [2]int{rowIdx, colIdx})
			}
		}
	}
	return matches
}
