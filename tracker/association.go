package tracker

// assignment is the result of an association pass: which detection index
// matched which existing track id, and which lost-track id (if any) a
// detection revived.
type assignment struct {
	// detToTrack maps a detection index to the id of the active/pending
	// track it matched.
	detToTrack map[int]string
	// detToRevived maps a detection index to the id of a lostTracks entry
	// it revived.
	detToRevived map[int]string
}

func newAssignment() assignment {
	return assignment{
		detToTrack:   make(map[int]string),
		detToRevived: make(map[int]string),
	}
}

// associator is the capability set shared by the greedy and Hungarian
// strategies (§4.3, §9: "treat them as polymorphic over the capability set
// {score detections against tracks, assign, report new tracks}").
type associator interface {
	associate(dets []Detection, tracks, lostTracks map[string]*track, trackOrder []string, cfg Config) assignment
}
