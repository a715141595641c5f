package app

// Global config object, set by main.go
var Config struct {
	// Directory where the sqlite database and item files live.
	DataDir string
	// Which registered detector op to run, e.g. "yolov3".
	DetectorOp string
	// Raw JSON params for the detector op.
	DetectorParams string
	// How many detector processes to keep in the pool.
	PoolSize int
}
