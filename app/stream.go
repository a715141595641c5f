package app

import (
	"github.com/vistream/vistream/detect"
	"github.com/vistream/vistream/vision"

	"bytes"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	gouuid "github.com/google/uuid"
	sio "github.com/zishang520/socket.io/v2/socket"
)

// StreamOptions configures one client's stream session, sent on the "start"
// event.
type StreamOptions struct {
	Score float64
	Categories []string
	NMSThreshold float64
	Track bool
	// draw "category score" labels on the output frames
	Labels bool
	// show the forward-pass time on the output frames
	Timing bool
	// record frames and detections into datasets
	Record bool
}

func (opts StreamOptions) GetNMSThreshold() float64 {
	if opts.NMSThreshold == 0 {
		return 0.45
	}
	return opts.NMSThreshold
}

type streamSession struct {
	mu sync.Mutex
	id string
	opts StreamOptions
	filter *detect.Filter
	tracker *detect.Tracker
	frameIdx int

	// set when opts.Record
	frameDS *DBDataset
	detectionDS *DBDataset
}

func newStreamSession() *streamSession {
	return &streamSession{
		id: gouuid.New().String(),
		filter: detect.NewFilter(detect.FilterParams{}),
		tracker: detect.NewTracker(detect.TrackerParams{}),
	}
}

func (session *streamSession) configure(opts StreamOptions) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.opts = opts
	session.filter = detect.NewFilter(detect.FilterParams{
		Categories: opts.Categories,
		Score: opts.Score,
	})
	session.tracker = detect.NewTracker(detect.TrackerParams{})
	if opts.Record && session.frameDS == nil {
		session.frameDS = NewDataset(fmt.Sprintf("stream-%s", session.id), "source", vision.ImageType)
		session.detectionDS = NewDataset(fmt.Sprintf("stream-%s (detections)", session.id), "computed", vision.DetectionType)
	}
}

// StreamResponse is emitted on the "detections" event for every frame.
type StreamResponse struct {
	FrameIdx int
	Detections []vision.Detection
	// forward-pass time in milliseconds
	ForwardMS int64
}

func decodeFrame(payload string) (vision.Image, error) {
	// browsers send data URLs; accept both forms
	if idx := strings.Index(payload, ","); idx != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return vision.Image{}, fmt.Errorf("bad base64 frame: %v", err)
	}
	im, err := vision.ImageFromJPGReader(bytes.NewReader(raw))
	if err != nil {
		return vision.Image{}, fmt.Errorf("bad jpeg frame: %v", err)
	}
	return im, nil
}

// process decodes and handles one frame payload. A payload that fails to
// decode still consumes a frame index so that indices stay dense.
func (session *streamSession) process(payload string) (vision.Image, StreamResponse, error) {
	im, err := decodeFrame(payload)
	if err != nil {
		session.mu.Lock()
		session.frameIdx++
		session.mu.Unlock()
		return vision.Image{}, StreamResponse{}, err
	}
	return session.handleFrame(im)
}

func (session *streamSession) handleFrame(im vision.Image) (vision.Image, StreamResponse, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	frameIdx := session.frameIdx
	session.frameIdx++

	t0 := time.Now()
	detections, err := pool.Detect([]vision.Image{im})
	if err != nil {
		return vision.Image{}, StreamResponse{}, err
	}
	forward := time.Now().Sub(t0)

	dlist := detect.NMS(detections[0], session.opts.GetNMSThreshold())
	dlist = session.filter.FilterFrame(dlist)
	if session.opts.Track {
		dlist = session.tracker.Update(dlist)
	}

	opts := detect.RenderOptions{Labels: session.opts.Labels}
	if session.opts.Timing {
		opts.Overlay = fmt.Sprintf("forward %dms", forward.Milliseconds())
	}
	rendered := detect.RenderFrame(im, dlist, opts)

	if session.frameDS != nil {
		key := fmt.Sprintf("%06d", frameIdx)
		session.frameDS.WriteItem(key, vision.ImageData{Images: []vision.Image{im}})
		session.detectionDS.WriteItem(key, vision.DetectionData{
			Detections: [][]vision.Detection{dlist},
			Metadata: vision.DetectionMetadata{
				CanvasDims: [2]int{im.Width, im.Height},
				Categories: pool.Categories(),
			},
		})
	}

	return rendered, StreamResponse{
		FrameIdx: frameIdx,
		Detections: dlist,
		ForwardMS: forward.Milliseconds(),
	}, nil
}

func stringArg(datas []any) string {
	if len(datas) == 0 {
		return ""
	}
	s, _ := datas[0].(string)
	return s
}

func init() {
	SetupFuncs = append(SetupFuncs, func(client *sio.Socket) {
		session := newStreamSession()

		client.On("start", func(datas ...any) {
			var opts StreamOptions
			if msg := stringArg(datas); msg != "" {
				vision.JsonUnmarshal([]byte(msg), &opts)
			}
			session.configure(opts)
			log.Printf("[stream %s] configured: %+v", session.id, opts)
			client.Emit("started", session.id)
		})

		client.On("stream", func(datas ...any) {
			rendered, response, err := session.process(stringArg(datas))
			if err != nil {
				log.Printf("[stream %s] %v", session.id, err)
				client.Emit("error", err.Error())
				return
			}
			client.Emit("detections", response)
			client.Emit("output", base64.StdEncoding.EncodeToString(rendered.AsJPG()))
		})

		client.On("message", func(datas ...any) {
			msg := stringArg(datas)
			log.Printf("received message: %s", msg)
			client.Emit("message", msg)
		})

		client.On("disconnect", func(datas ...any) {
			log.Printf("[stream %s] disconnected after %d frames (%v)", session.id, session.frameIdx, stringArg(datas))
		})
	})
}
