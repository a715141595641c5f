package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistream/vistream/vision"
)

func box(left, top int) vision.Detection {
	return vision.Detection{Left: left, Top: top, Right: left + 50, Bottom: top + 50}
}

func TestTrackerContinuity(t *testing.T) {
	tracker := NewTracker(TrackerParams{})
	frame0 := tracker.Update([]vision.Detection{box(100, 100)})
	require.Len(t, frame0, 1)
	id := frame0[0].TrackID
	assert.NotZero(t, id)

	// small motion keeps the same track
	frame1 := tracker.Update([]vision.Detection{box(105, 102)})
	require.Len(t, frame1, 1)
	assert.Equal(t, id, frame1[0].TrackID)

	frame2 := tracker.Update([]vision.Detection{box(110, 104)})
	require.Len(t, frame2, 1)
	assert.Equal(t, id, frame2[0].TrackID)
}

func TestTrackerNewTrackForDistantDetection(t *testing.T) {
	tracker := NewTracker(TrackerParams{})
	frame0 := tracker.Update([]vision.Detection{box(0, 0)})
	frame1 := tracker.Update([]vision.Detection{box(0, 0), box(500, 500)})
	require.Len(t, frame1, 2)
	ids := map[int]bool{frame1[0].TrackID: true, frame1[1].TrackID: true}
	assert.Len(t, ids, 2)
	assert.True(t, ids[frame0[0].TrackID])
}

func TestTrackerMaxAgeExpiry(t *testing.T) {
	tracker := NewTracker(TrackerParams{MaxAge: 3})
	frame0 := tracker.Update([]vision.Detection{box(100, 100)})
	oldID := frame0[0].TrackID

	// several empty frames age the track out
	for i := 0; i < 5; i++ {
		tracker.Update(nil)
	}

	frameN := tracker.Update([]vision.Detection{box(100, 100)})
	require.Len(t, frameN, 1)
	assert.NotEqual(t, oldID, frameN[0].TrackID, "expired track must not be resumed")
}

func TestTrackerVelocityEstimate(t *testing.T) {
	params := TrackerParams{}
	track := []TrackedDetection{
		{Detection: box(0, 0), FrameIdx: 0},
		{Detection: box(10, 0), FrameIdx: 1},
	}
	est := params.EstimatePosition(2, track)
	// object moving +10px/frame in x should be estimated near x=20
	assert.Equal(t, 20, est.Left)
	assert.Equal(t, 0, est.Top)
}

func TestExtractMatchesConflict(t *testing.T) {
	params := TrackerParams{}
	// both tracks prefer detection 0; higher score wins, loser matches nothing
	matrix := [][]float64{
		{0.8, 0.0},
		{0.6, 0.05},
	}
	matches := params.ExtractMatches(matrix)
	require.Len(t, matches, 1)
	assert.Equal(t, [2]int{0, 0}, matches[0])
}

func TestTrackFrames(t *testing.T) {
	detections := [][]vision.Detection{
		{box(100, 100)},
		{box(104, 100)},
		{box(108, 100)},
	}
	out := TrackFrames(TrackerParams{}, detections)
	require.Len(t, out, 3)
	id := out[0][0].TrackID
	assert.Equal(t, id, out[1][0].TrackID)
	assert.Equal(t, id, out[2][0].TrackID)
}
