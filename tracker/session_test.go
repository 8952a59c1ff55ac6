package tracker

import (
	"strconv"
	"testing"
)

func personFrame(box BoundingBox) Frame {
	return Frame{
		Detections:     []Detection{{ClassName: "person", Score: 0.9, BoundingBox: &box}},
		InputDimension: [2]float64{1000, 1000},
	}
}

func emptyFrame() Frame {
	return Frame{InputDimension: [2]float64{1000, 1000}}
}

// S1 — first sighting, no confirmation yet.
func TestS1FirstSightingNoConfirmation(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	res := s.Update(personFrame(BoundingBox{X: 10, Y: 10, Width: 50, Height: 50}), false, nil)

	if len(res.Pending) != 1 {
		t.Fatalf("expected 1 pending track, got %d", len(res.Pending))
	}
	if res.Pending[0].ID != "1" {
		t.Fatalf("expected pending track id '1', got %q", res.Pending[0].ID)
	}
	if res.HasDetectionID() {
		t.Fatalf("expected no detectionId on first sighting")
	}
	if len(res.Active) != 1 || res.Active[0].ClassName != MotionClassName || res.Active[0].BoundingBox == nil {
		t.Fatalf("expected single boxed motion sentinel, got %+v", res.Active)
	}
}

// S2 — confirmation on third frame.
func TestS2ConfirmationOnThirdFrame(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	box := BoundingBox{X: 10, Y: 10, Width: 50, Height: 50}
	var res FrameResult
	for i := 0; i < 3; i++ {
		res = s.Update(personFrame(box), false, nil)
	}

	if len(res.Pending) != 0 {
		t.Fatalf("expected no pending tracks after confirmation, got %d", len(res.Pending))
	}
	if len(res.Active) != 2 {
		t.Fatalf("expected person + motion sentinel in active, got %d: %+v", len(res.Active), res.Active)
	}
	var person *ActiveEntry
	for i := range res.Active {
		if res.Active[i].IsTrack() {
			person = &res.Active[i]
		}
	}
	if person == nil {
		t.Fatalf("expected a confirmed person track in active")
	}
	if person.ID != "1" {
		t.Fatalf("expected id '1', got %q", person.ID)
	}
	if person.Movement.Moving {
		t.Fatalf("expected moving = false for a stationary track")
	}
	if !res.HasDetectionID() || res.DetectionID != s.SessionID()+"-2" {
		t.Fatalf("expected detectionId %q, got %q (has=%v)", s.SessionID()+"-2", res.DetectionID, res.HasDetectionID())
	}
}

// S3 — movement detection.
func TestS3MovementDetection(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	box := BoundingBox{X: 10, Y: 10, Width: 50, Height: 50}
	for i := 0; i < 3; i++ {
		s.Update(personFrame(box), false, nil)
	}

	res := s.Update(personFrame(BoundingBox{X: 80, Y: 10, Width: 50, Height: 50}), false, nil)

	var person *ActiveEntry
	for i := range res.Active {
		if res.Active[i].IsTrack() {
			person = &res.Active[i]
		}
	}
	if person == nil {
		t.Fatalf("expected the confirmed person track to persist across a large shift")
	}
	if person.ID != "1" {
		t.Fatalf("expected the same track id '1' to persist, got %q", person.ID)
	}
	if !person.Movement.Moving {
		t.Fatalf("expected movement.moving = true")
	}
	if res.HasDetectionID() {
		t.Fatalf("expected no detectionId: confirmed set unchanged")
	}
}

// S4 — track lost and re-acquired.
func TestS4TrackLostAndReacquired(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSession(cfg, nil)
	box := BoundingBox{X: 10, Y: 10, Width: 50, Height: 50}
	for i := 0; i < 3; i++ {
		s.Update(personFrame(box), false, nil)
	}

	var lostRes FrameResult
	for i := 0; i < cfg.MaxMisses; i++ {
		lostRes = s.Update(emptyFrame(), false, nil)
	}
	if !lostRes.HasDetectionID() {
		t.Fatalf("expected a disappearance detectionId on the frame the track is demoted to lost")
	}
	for _, a := range lostRes.Active {
		if a.IsTrack() {
			t.Fatalf("expected no confirmed tracks in active once lost, got %+v", a)
		}
	}

	res := s.Update(personFrame(BoundingBox{X: 12, Y: 12, Width: 50, Height: 50}), false, nil)
	var person *ActiveEntry
	for i := range res.Active {
		if res.Active[i].IsTrack() {
			person = &res.Active[i]
		}
	}
	if person == nil || person.ID != "1" {
		t.Fatalf("expected re-acquisition to restore id '1', got %+v", res.Active)
	}
}

// S5 — NMS under duplicate.
func TestS5NMSDuplicate(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	frame := Frame{
		Detections: []Detection{
			{ClassName: "person", Score: 0.9, BoundingBox: &BoundingBox{X: 0, Y: 0, Width: 100, Height: 100}},
			{ClassName: "person", Score: 0.8, BoundingBox: &BoundingBox{X: 5, Y: 5, Width: 100, Height: 100}},
		},
		InputDimension: [2]float64{1000, 1000},
	}
	res := s.Update(frame, false, nil)
	if len(res.Pending) != 1 {
		t.Fatalf("expected exactly one new track after NMS, got %d", len(res.Pending))
	}
}

// S6 — oversize drop.
func TestS6OversizeDrop(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	frame := Frame{
		Detections:     []Detection{{ClassName: "person", Score: 0.9, BoundingBox: &BoundingBox{X: 0, Y: 0, Width: 980, Height: 980}}},
		InputDimension: [2]float64{1000, 1000},
	}
	res := s.Update(frame, false, nil)
	if len(res.Pending) != 0 {
		t.Fatalf("expected no pending tracks for an oversize detection, got %d", len(res.Pending))
	}
	if len(res.Active) != 1 || res.Active[0].BoundingBox != nil {
		t.Fatalf("expected a single bare motion sentinel, got %+v", res.Active)
	}
}

func TestBasicOnlyBypass(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	frame := personFrame(BoundingBox{X: 10, Y: 10, Width: 50, Height: 50})
	res := s.Update(frame, true, nil)

	if len(res.Pending) != 0 {
		t.Fatalf("basicOnly must produce no pending tracks, got %d", len(res.Pending))
	}
	if res.HasDetectionID() {
		t.Fatalf("basicOnly must produce no detectionId")
	}
	if len(res.Active) != 2 {
		t.Fatalf("expected pre-filtered detection + motion sentinel, got %d", len(res.Active))
	}
}

func TestMonotonicTrackIDs(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	var lastID uint64
	for i := 0; i < 5; i++ {
		box := BoundingBox{X: float64(i * 200), Y: 0, Width: 20, Height: 20}
		res := s.Update(personFrame(box), false, nil)
		for _, p := range res.Pending {
			id, err := strconv.ParseUint(p.ID, 36, 64)
			if err != nil {
				t.Fatalf("expected base-36 track id, got %q: %v", p.ID, err)
			}
			if id <= lastID {
				t.Fatalf("expected strictly increasing track ids, got %d after %d", id, lastID)
			}
			lastID = id
		}
	}
}
