package tracker

import (
	"sort"

	"go.uber.org/zap"
)

// preFilter applies §4.2 in order: oversize rejection, class/score filter,
// class-aware NMS. It never mutates dets; it returns a new slice
// preserving each surviving detection's fields.
func preFilter(log *zap.Logger, dets []Detection, inputW, inputH float64, cfg Config) []Detection {
	survivors := rejectOversize(dets, inputW, inputH)
	if dropped := len(dets) - len(survivors); dropped > 0 {
		log.Debug("pre-filter: dropped oversize detections", zap.Int("dropped", dropped))
	}

	afterClassScore := filterClassScore(survivors, cfg)
	if dropped := len(survivors) - len(afterClassScore); dropped > 0 {
		log.Debug("pre-filter: dropped disabled/low-score detections", zap.Int("dropped", dropped))
	}

	kept := classAwareNMS(afterClassScore, cfg)
	if dropped := len(afterClassScore) - len(kept); dropped > 0 {
		log.Debug("pre-filter: suppressed detections by NMS", zap.Int("dropped", dropped))
	}
	return kept
}

// rejectOversize drops any detection whose box covers >= 95% of the input
// image area — typically a detector's whole-image false positive.
func rejectOversize(dets []Detection, inputW, inputH float64) []Detection {
	imageArea := inputW * inputH
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.BoundingBox == nil || imageArea <= 0 {
			out = append(out, d)
			continue
		}
		ratio := Area(*d.BoundingBox) / imageArea
		if ratio >= 0.95 {
			continue
		}
		out = append(out, d)
	}
	return out
}

// filterClassScore drops detections whose class is not enabled, or whose
// score is below that class's minScore.
func filterClassScore(dets []Detection, cfg Config) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if !cfg.isEnabled(d.ClassName) {
			continue
		}
		if d.Score < cfg.classParams(d.ClassName).MinScore {
			continue
		}
		out = append(out, d)
	}
	return out
}

// classAwareNMS sorts by score descending and, for each kept detection,
// discards later same-class detections whose IoU exceeds that class's
// iouThreshold. Different classes never suppress each other.
func classAwareNMS(dets []Detection, cfg Config) []Detection {
	ordered := make([]Detection, len(dets))
	copy(ordered, dets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	suppressed := make([]bool, len(ordered))
	kept := make([]Detection, 0, len(ordered))
	for i := range ordered {
		if suppressed[i] {
			continue
		}
		kept = append(kept, ordered[i])
		if ordered[i].BoundingBox == nil {
			continue
		}
		threshold := cfg.classParams(ordered[i].ClassName).IoUThreshold
		for j := i + 1; j < len(ordered); j++ {
			if suppressed[j] || ordered[j].ClassName != ordered[i].ClassName {
				continue
			}
			if ordered[j].BoundingBox == nil {
				continue
			}
			if IoU(*ordered[i].BoundingBox, *ordered[j].BoundingBox) > threshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
