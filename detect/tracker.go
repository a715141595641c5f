package detect

import (
	"github.com/mitroadmaps/gomapinfer/common"

	"github.com/vistream/vistream/vision"
)

func abs(x int) int {
	if x < 0 {
		return -x
	} else {
		return x
	}
}

type TrackerParams struct {
	// max number of steps (frames) to use to estimate velocity
	VelocitySteps int
	// minimum IOU to consider when connecting two detections
	MinIOU float64
	// maximum age (in frames) of a track before it's considered inactive
	MaxAge int
}

func (params TrackerParams) GetVelocitySteps() int {
	if params.VelocitySteps == 0 {
		return 5
	}
	return params.VelocitySteps
}

func (params TrackerParams) GetMinIOU() float64 {
	if params.MinIOU == 0 {
		return 0.1
	}
	return params.MinIOU
}

func (params TrackerParams) GetMaxAge() int {
	if params.MaxAge == 0 {
		return 10
	}
	return params.MaxAge
}

type TrackedDetection struct {
	vision.Detection
	FrameIdx int
}

func (d TrackedDetection) Rectangle() common.Rectangle {
	return common.Rectangle{
		Min: common.Point{X: float64(d.Left), Y: float64(d.Top)},
		Max: common.Point{X: float64(d.Right), Y: float64(d.Bottom)},
	}
}

// helper function: estimate current position of track in new frame
// we make the estimation using the object's recent average speed
func (params TrackerParams) EstimatePosition(curFrame int, track []TrackedDetection) TrackedDetection {
	lastDetection := track[len(track)-1]

	if len(track) == 1 {
		return lastDetection
	}

	// find detection closest to a frame a certain interval in the past
	// use this to get a speed estimate
	targetFrame := lastDetection.FrameIdx - params.GetVelocitySteps()
	var bestDetection TrackedDetection
	var bestOffset int = -1
	for _, d := range track[0:len(track)-1] {
		offset := abs(d.FrameIdx - targetFrame)
		if bestOffset == -1 || offset < bestOffset {
			bestDetection = d
			bestOffset = offset
		}
	}
	dx := float64(lastDetection.Left+lastDetection.Right-bestDetection.Left-bestDetection.Right)/2
	dy := float64(lastDetection.Top+lastDetection.Bottom-bestDetection.Top-bestDetection.Bottom)/2
	scale := float64(curFrame - lastDetection.FrameIdx)/float64(lastDetection.FrameIdx-bestDetection.FrameIdx)
	motion := [2]int{int(dx*scale), int(dy*scale)}

	return TrackedDetection{Detection: vision.Detection{
		Left: lastDetection.Left + motion[0],
		Top: lastDetection.Top + motion[1],
		Right: lastDetection.Right + motion[0],
		Bottom: lastDetection.Bottom + motion[1],
	}}
}

func (params TrackerParams) ComputeScores(curFrame int, activeTracks [][]TrackedDetection, dlist []vision.Detection) [][]float64 {
	matrix := make([][]float64, len(activeTracks))
	for i, track := range activeTracks {
		matrix[i] = make([]float64, len(dlist))
		curEstimate := params.EstimatePosition(curFrame, track)
		trackRect := curEstimate.Rectangle()

		for j, detection := range dlist {
			detRect := TrackedDetection{Detection: detection}.Rectangle()
			matrix[i][j] = trackRect.IOU(detRect)
		}
	}
	return matrix
}

// helper function: extract matches from matrix
// hungarian algorithm doesn't work too well here, instead we do simple greedy approach
func (params TrackerParams) ExtractMatches(matrix [][]float64) [][2]int {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return nil
	}

	// get max probability and index over columns along each row
	type Candidate struct {
		Row int
		Col int
		Score float64
	}
	rowMax := make([]Candidate, len(matrix))
	for i := range matrix {
		rowMax[i] = Candidate{-1, -1, params.GetMinIOU()}
		for j := range matrix[i] {
			prob := matrix[i][j]
			if prob > rowMax[i].Score {
				rowMax[i] = Candidate{i, j, prob}
			}
		}
	}

	// now make sure each row picked a unique column
	// in cases of conflicts, resolve via max probability
	// the losing row in the conflict would then match to nothing
	colMax := make([]Candidate, len(matrix[0]))
	for i := 0; i < len(matrix[0]); i++ {
		colMax[i] = Candidate{-1, -1, 0}
	}
	for _, candidate := range rowMax {
		if candidate.Col == -1 {
			continue
		}
		if candidate.Score > colMax[candidate.Col].Score {
			colMax[candidate.Col] = candidate
		}
	}

	// finally we can enumerate the matches
	var matches [][2]int
	for _, candidate := range colMax {
		if candidate.Col == -1 {
			continue
		}
		matches = append(matches, [2]int{candidate.Row, candidate.Col})
	}
	return matches
}

// Tracker assigns TrackIDs to detections across consecutive frames. It is
// incremental so it works both over live streams and stored sequences.
type Tracker struct {
	Params TrackerParams

	activeTracks map[int][]TrackedDetection
	nextTrackID int
	frameIdx int
}

func NewTracker(params TrackerParams) *Tracker {
	return &Tracker{
		Params: params,
		activeTracks: make(map[int][]TrackedDetection),
		nextTrackID: 1,
	}
}

// Update matches one frame of detections against the active tracks and
// returns the detections with TrackID set. Unmatched detections start new
// tracks.
func (t *Tracker) Update(dlist []vision.Detection) []vision.Detection {
	frameIdx := t.frameIdx
	t.frameIdx++

	// get matrix matching active tracks to new detections
	// rows: active tracks
	// cols: current detections
	// values: IOU score between the estimated position of track in current frame, and detection
	var activeIDs []int
	var activeList [][]TrackedDetection
	for id, track := range t.activeTracks {
		activeIDs = append(activeIDs, id)
		activeList = append(activeList, track)
	}

	matrix := t.Params.ComputeScores(frameIdx, activeList, dlist)

	// compute matches, and add detections to the matched tracks
	// detections that didn't match to any track will form new tracks
	out := []vision.Detection{}
	matches := t.Params.ExtractMatches(matrix)
	matchedDetections := make([]bool, len(dlist))
	for _, match := range matches {
		trackIdx, detectionIdx := match[0], match[1]
		trackID := activeIDs[trackIdx]
		detection := dlist[detectionIdx]
		detection.TrackID = trackID
		t.activeTracks[trackID] = append(t.activeTracks[trackID], TrackedDetection{
			Detection: detection,
			FrameIdx: frameIdx,
		})
		out = append(out, detection)
		matchedDetections[detectionIdx] = true
	}
	for j, detection := range dlist {
		if matchedDetections[j] {
			continue
		}
		trackID := t.nextTrackID
		t.nextTrackID++
		detection.TrackID = trackID
		t.activeTracks[trackID] = []TrackedDetection{{
			Detection: detection,
			FrameIdx: frameIdx,
		}}
		out = append(out, detection)
	}

	// remove old active tracks
	for trackID, track := range t.activeTracks {
		if frameIdx - track[len(track)-1].FrameIdx < t.Params.GetMaxAge() {
			continue
		}
		delete(t.activeTracks, trackID)
	}

	return out
}

// TrackFrames runs the tracker over a stored detection sequence.
func TrackFrames(params TrackerParams, detections [][]vision.Detection) [][]vision.Detection {
	tracker := NewTracker(params)
	out := make([][]vision.Detection, len(detections))
	for i, dlist := range detections {
		out[i] = tracker.Update(dlist)
	}
	return out
}
