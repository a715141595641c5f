package app

import (
	"github.com/vistream/vistream/detect"
)

// pool of detector processes shared by stream sessions and jobs
var pool *detect.Pool

func InitDetectors() error {
	n := Config.PoolSize
	if n == 0 {
		n = 1
	}
	var err error
	pool, err = detect.NewPool(n, func() (detect.Detector, error) {
		return detect.NewDetector(Config.DetectorOp, Config.DetectorParams)
	})
	return err
}

func CloseDetectors() {
	if pool != nil {
		pool.Close()
	}
}
