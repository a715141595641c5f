package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vistream/vistream/vision"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Result summarizes one finished stream.
type Result struct {
	Name string
	FramesSent int
	Responses int
	Errors int
	AvgLatency time.Duration
	MaxLatency time.Duration
}

// matches the server's "detections" payload
type detectionsResponse struct {
	FrameIdx int
	ForwardMS int64
}

type startOptions struct {
	Score float64
	Categories []string
	NMSThreshold float64
	Track bool
	Labels bool
	Timing bool
	Record bool
}

func (stream *Stream) startOptions() startOptions {
	return startOptions{
		Score: stream.Score,
		Categories: stream.Categories,
		Track: stream.Track,
		Labels: stream.Labels,
		Timing: stream.Timing,
		Record: stream.Record,
	}
}

func (stream *Stream) frameInterval() time.Duration {
	if stream.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / stream.Rate)
}

func loadFrames(glob string) ([]string, error) {
	fnames, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}
	sort.Strings(fnames)
	var frames []string
	for _, fname := range fnames {
		ext := filepath.Ext(fname)
		if ext != ".jpg" && ext != ".jpeg" {
			continue
		}
		// reject bad frames up front rather than mid-stream
		if _, err := vision.ImageFromFile(fname); err != nil {
			return nil, fmt.Errorf("bad frame %s: %v", fname, err)
		}
		bytes, err := os.ReadFile(fname)
		if err != nil {
			return nil, err
		}
		frames = append(frames, base64.StdEncoding.EncodeToString(bytes))
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no jpeg frames match %s", glob)
	}
	return frames, nil
}

// Run streams frames until the configured count is reached, then waits for
// outstanding responses before reporting.
func Run(stream *Stream, timeout time.Duration) (*Result, error) {
	frames, err := loadFrames(stream.Images)
	if err != nil {
		return nil, err
	}
	count := stream.Count
	if count == 0 {
		count = len(frames)
	}

	parsedURL, err := url.Parse(stream.URL)
	if err != nil {
		return nil, fmt.Errorf("bad url %s: %v", stream.URL, err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)
	defer io.Disconnect()

	var mu sync.Mutex
	result := &Result{Name: stream.Name}
	sendTimes := make(map[int]time.Time)
	var totalLatency time.Duration

	connected := make(chan bool, 1)
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	io.On(types.EventName("connect"), func(...any) {
		log.Printf("[%s] connected, streaming %d frames", stream.Name, count)
		io.Emit("start", string(mustJson(stream.startOptions())))
		select {
		case connected <- true:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				finish(err)
				return
			}
		}
		finish(fmt.Errorf("connect error"))
	})
	io.On(types.EventName("detections"), func(data ...any) {
		var response detectionsResponse
		if len(data) > 0 {
			raw, err := json.Marshal(data[0])
			if err == nil {
				json.Unmarshal(raw, &response)
			}
		}
		mu.Lock()
		result.Responses++
		if sent, ok := sendTimes[response.FrameIdx]; ok {
			latency := time.Now().Sub(sent)
			totalLatency += latency
			if latency > result.MaxLatency {
				result.MaxLatency = latency
			}
			delete(sendTimes, response.FrameIdx)
		}
		responses := result.Responses
		mu.Unlock()
		if responses >= count {
			finish(nil)
		}
	})
	io.On(types.EventName("error"), func(data ...any) {
		mu.Lock()
		result.Errors++
		errors := result.Errors + result.Responses
		mu.Unlock()
		if errors >= count {
			finish(nil)
		}
	})

	io.Connect()

	select {
	case <-connected:
	case err := <-done:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timed out waiting for connection")
	}

	// sender
	stop := make(chan struct{})
	senderDone := make(chan struct{})
	go func() {
		defer close(senderDone)
		interval := stream.frameInterval()
		for i := 0; i < count; i++ {
			select {
			case <-stop:
				return
			default:
			}
			frame := frames[i%len(frames)]
			mu.Lock()
			sendTimes[i] = time.Now()
			result.FramesSent++
			mu.Unlock()
			io.Emit("stream", frame)
			if interval > 0 {
				select {
				case <-stop:
					return
				case <-time.After(interval):
				}
			}
		}
	}()

	var runErr error
	select {
	case err := <-done:
		runErr = err
	case <-time.After(timeout):
		log.Printf("[%s] timed out with %d/%d responses", stream.Name, result.Responses, count)
	}
	close(stop)
	<-senderDone
	if runErr != nil {
		return nil, runErr
	}

	if result.Responses > 0 {
		result.AvgLatency = totalLatency / time.Duration(result.Responses)
	}
	return result, nil
}

func mustJson(x interface{}) []byte {
	bytes, err := json.Marshal(x)
	if err != nil {
		panic(err)
	}
	return bytes
}
