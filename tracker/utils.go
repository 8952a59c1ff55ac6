package tracker

import (
	"sort"
	"strconv"
)

// sortTrackIDs sorts track ids (base-36 encodings of the monotonic track
// counter) in creation order, oldest first.
func sortTrackIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseUint(ids[i], 36, 64)
		b, _ := strconv.ParseUint(ids[j], 36, 64)
		return a < b
	})
}
