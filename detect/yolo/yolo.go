// Package yolo runs darknet YOLOv3 inference through an external worker
// process. The worker receives raw RGB frames on stdin and replies with one
// JSON detection line per batch.
package yolo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vistream/vistream/detect"
	"github.com/vistream/vistream/vision"
)

type Params struct {
	InputSize [2]int
	ConfigPath string
	WeightsPath string
	NamesPath string
	BatchSize int
}

func (p Params) GetInputSize() [2]int {
	if p.InputSize[0] == 0 || p.InputSize[1] == 0 {
		// the demo network runs at 416x416
		return [2]int{416, 416}
	}
	return p.InputSize
}

func (p Params) GetConfigPath() string {
	if p.ConfigPath == "" {
		return "cfg/yolov3.cfg"
	}
	return p.ConfigPath
}

func (p Params) GetWeightsPath() string {
	if p.WeightsPath == "" {
		return "yolov3.weights"
	}
	return p.WeightsPath
}

func (p Params) GetNamesPath() string {
	if p.NamesPath == "" {
		return "coco.names"
	}
	return p.NamesPath
}

func (p Params) GetBatchSize() int {
	if p.BatchSize == 0 {
		return 8
	}
	return p.BatchSize
}

// CreateConfig writes a copy of the darknet configuration with the width and
// height lines rewritten to match the configured input size.
func CreateConfig(fname string, p Params) error {
	file, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer file.Close()
	dims := p.GetInputSize()
	for _, line := range strings.Split(vision.ReadTextFile(p.GetConfigPath()), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "width=") {
			line = fmt.Sprintf("width=%d", dims[0])
		} else if strings.HasPrefix(line, "height=") {
			line = fmt.Sprintf("height=%d", dims[1])
		}
		if _, err := file.Write([]byte(line+"\n")); err != nil {
			return err
		}
	}
	return nil
}

func loadCategories(fname string) []string {
	var categories []string
	for _, line := range strings.Split(vision.ReadTextFile(fname), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		categories = append(categories, line)
	}
	return categories
}

type Yolo struct {
	mu sync.Mutex
	cmd *vision.Cmd
	stdin io.WriteCloser
	rd *bufio.Reader
	batchSize int
	dims [2]int
	categories []string
}

func Prepare(paramsRaw string) (detect.Detector, error) {
	var params Params
	if paramsRaw != "" {
		vision.JsonUnmarshal([]byte(paramsRaw), &params)
	}

	for _, fname := range []string{params.GetConfigPath(), params.GetWeightsPath(), params.GetNamesPath()} {
		if !vision.FileExists(fname) {
			return nil, fmt.Errorf("missing model file %s", fname)
		}
	}
	categories := loadCategories(params.GetNamesPath())

	dims := params.GetInputSize()

	// rewrite the darknet config with our input size next to the weights
	configFname := filepath.Join(filepath.Dir(params.GetWeightsPath()), fmt.Sprintf("yolov3-%dx%d.cfg", dims[0], dims[1]))
	if err := CreateConfig(configFname, params); err != nil {
		return nil, err
	}

	batchSize := params.GetBatchSize()
	cmd := vision.Command(
		"yolo", vision.CommandOptions{},
		"python3", "scripts/yolov3.py",
		configFname, params.GetWeightsPath(), params.GetNamesPath(),
		fmt.Sprintf("%d", batchSize),
		fmt.Sprintf("%d", dims[0]), fmt.Sprintf("%d", dims[1]),
	)

	return &Yolo{
		cmd: cmd,
		stdin: cmd.Stdin(),
		rd: bufio.NewReader(cmd.Stdout()),
		batchSize: batchSize,
		dims: dims,
		categories: categories,
	}, nil
}

func (e *Yolo) InputDims() [2]int {
	return e.dims
}

func (e *Yolo) Categories() []string {
	return e.categories
}

// Detect runs the batch through the worker. Boxes come back in network input
// coordinates and are scaled to each source frame before returning.
func (e *Yolo) Detect(images []vision.Image) ([][]vision.Detection, error) {
	detections := make([][]vision.Detection, 0, len(images))
	zeroImage := vision.NewImage(e.dims[0], e.dims[1])
	for len(detections) < len(images) {
		batch := images[len(detections):]
		if len(batch) > e.batchSize {
			batch = batch[0:e.batchSize]
		}

		e.mu.Lock()
		for _, im := range batch {
			if im.Width != e.dims[0] || im.Height != e.dims[1] {
				im = im.Resize(e.dims[0], e.dims[1])
			}
			e.stdin.Write(im.Bytes)
		}
		for i := len(batch); i < e.batchSize; i++ {
			e.stdin.Write(zeroImage.Bytes)
		}

		// the worker prefixes its detection line with "json"; skip anything else
		signature := "json"
		var line string
		var err error
		for {
			line, err = e.rd.ReadString('\n')
			if err != nil || strings.HasPrefix(line, signature) {
				break
			}
		}
		e.mu.Unlock()

		if err != nil {
			return nil, fmt.Errorf("error reading from yolo worker: %v", err)
		}

		line = strings.TrimSpace(line[len(signature):])
		var batchDetections [][]vision.Detection
		vision.JsonUnmarshal([]byte(line), &batchDetections)
		for i, dlist := range batchDetections[0:len(batch)] {
			detections = append(detections, scaleFrame(dlist, e.dims, batch[i]))
		}
	}
	return detections, nil
}

func scaleFrame(dlist []vision.Detection, dims [2]int, im vision.Image) []vision.Detection {
	out := []vision.Detection{}
	for _, d := range dlist {
		d.Left = d.Left * im.Width / dims[0]
		d.Right = d.Right * im.Width / dims[0]
		d.Top = d.Top * im.Height / dims[1]
		d.Bottom = d.Bottom * im.Height / dims[1]
		out = append(out, d.Clip([2]int{im.Width, im.Height}))
	}
	return out
}

func (e *Yolo) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd != nil {
		e.stdin.Close()
		e.cmd.Wait()
		e.cmd = nil
	}
}

func init() {
	detect.DetectorImpls["yolov3"] = Prepare
}
