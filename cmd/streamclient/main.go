package main

import (
	"github.com/vistream/vistream/client"
	"github.com/vistream/vistream/vision"

	"flag"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"
)

// mirrors the server's POST /jobs body and job rows
type jobRequest struct {
	Name string
	DatasetID int
}
type job struct {
	ID int
	State string
	Progress int
	Error string
}

// runJob starts a batch detection job over a dataset and polls it until it
// finishes.
func runJob(baseURL string, datasetID int) error {
	var j job
	if err := vision.JsonPost(baseURL, "/jobs", jobRequest{Name: "streamclient", DatasetID: datasetID}, &j); err != nil {
		return err
	}
	log.Printf("[job %d] started over dataset %d", j.ID, datasetID)
	for j.State == "pending" || j.State == "running" {
		time.Sleep(time.Second)
		if err := vision.JsonGet(baseURL, fmt.Sprintf("/jobs/%d", j.ID), &j); err != nil {
			return err
		}
		log.Printf("[job %d] %s (%d%%)", j.ID, j.State, j.Progress)
	}
	if j.Error != "" {
		return fmt.Errorf("job %d failed: %s", j.ID, j.Error)
	}
	return nil
}

type varFlags map[string]string

func (v varFlags) String() string {
	return fmt.Sprintf("%v", map[string]string(v))
}

func (v varFlags) Set(s string) error {
	idx := strings.Index(s, "=")
	if idx == -1 {
		return fmt.Errorf("expected key=value, got %s", s)
	}
	v[s[0:idx]] = s[idx+1:]
	return nil
}

func main() {
	scenarioPath := flag.String("scenario", "scenario.hcl", "scenario file")
	timeout := flag.Duration("timeout", 5*time.Minute, "per-stream timeout")
	jobDataset := flag.Int("job", 0, "after streaming, run a batch detection job over this dataset id")
	vars := varFlags{}
	flag.Var(vars, "var", "scenario variable as key=value (repeatable)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	scenario, err := client.LoadScenario(*scenarioPath, vars)
	if err != nil {
		log.Fatalf("error loading %s: %v", *scenarioPath, err)
	}
	if len(scenario.Streams) == 0 {
		log.Fatalf("%s defines no streams", *scenarioPath)
	}

	var wg sync.WaitGroup
	results := make([]*client.Result, len(scenario.Streams))
	errs := make([]error, len(scenario.Streams))
	for i, stream := range scenario.Streams {
		wg.Add(1)
		go func(i int, stream *client.Stream) {
			defer wg.Done()
			results[i], errs[i] = client.Run(stream, *timeout)
		}(i, stream)
	}
	wg.Wait()

	failed := false
	for i, stream := range scenario.Streams {
		if errs[i] != nil {
			log.Printf("[%s] failed: %v", stream.Name, errs[i])
			failed = true
			continue
		}
		result := results[i]
		log.Printf(
			"[%s] sent %d frames, %d responses, %d errors, latency avg %v max %v",
			result.Name, result.FramesSent, result.Responses, result.Errors,
			result.AvgLatency, result.MaxLatency,
		)
	}
	if failed {
		log.Fatalf("some streams failed")
	}

	if *jobDataset != 0 {
		parsed, err := url.Parse(scenario.Streams[0].URL)
		if err != nil {
			log.Fatalf("bad url %s: %v", scenario.Streams[0].URL, err)
		}
		baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
		if err := runJob(baseURL, *jobDataset); err != nil {
			log.Fatalf("%v", err)
		}
	}
}
