// Package detect implements the detection pipeline: running a detector over
// frames, and post-processing its output (suppression, filtering, tracking,
// rendering, export).
package detect

import (
	"fmt"

	"github.com/vistream/vistream/vision"
)

// Detector produces per-frame detections for a batch of frames.
// Implementations are expected to resize input frames to InputDims themselves.
type Detector interface {
	Detect(images []vision.Image) ([][]vision.Detection, error)
	InputDims() [2]int
	Categories() []string
	Close()
}

// DetectorImpls maps op name to a factory taking the raw JSON params.
var DetectorImpls = make(map[string]func(params string) (Detector, error))

func NewDetector(op string, params string) (Detector, error) {
	impl, ok := DetectorImpls[op]
	if !ok {
		return nil, fmt.Errorf("no such detector op %s", op)
	}
	return impl(params)
}
