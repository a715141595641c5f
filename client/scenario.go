// Package client implements a scenario-driven stream client: it replays
// images from disk against the server's socket.io endpoint, which makes it
// both a demo feed and a simple load generator.
package client

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Stream describes one stream block of a scenario file.
type Stream struct {
	Name string `hcl:"name,label"`
	URL string `hcl:"url"`
	// glob over image files to send
	Images string `hcl:"images"`
	// frames per second; 0 means as fast as responses come back
	Rate float64 `hcl:"rate,optional"`
	// total frames to send; 0 means one pass over the matched files
	Count int `hcl:"count,optional"`

	// session options forwarded on the "start" event
	Score float64 `hcl:"score,optional"`
	Categories []string `hcl:"categories,optional"`
	Track bool `hcl:"track,optional"`
	Labels bool `hcl:"labels,optional"`
	Timing bool `hcl:"timing,optional"`
	Record bool `hcl:"record,optional"`
}

type Scenario struct {
	Streams []*Stream `hcl:"stream,block"`
}

func evalContext(vars map[string]string) *hcl.EvalContext {
	values := make(map[string]cty.Value)
	for k, v := range vars {
		values[k] = cty.StringVal(v)
	}
	var varVal cty.Value
	if len(values) > 0 {
		varVal = cty.ObjectVal(values)
	} else {
		varVal = cty.EmptyObjectVal
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var": varVal,
		},
	}
}

func decodeScenario(file *hcl.File, vars map[string]string) (*Scenario, error) {
	var scenario Scenario
	diags := gohcl.DecodeBody(file.Body, evalContext(vars), &scenario)
	if diags.HasErrors() {
		return nil, fmt.Errorf("error decoding scenario: %w", diags)
	}
	for _, stream := range scenario.Streams {
		if stream.URL == "" {
			return nil, fmt.Errorf("stream %s: url is required", stream.Name)
		}
		if stream.Images == "" {
			return nil, fmt.Errorf("stream %s: images is required", stream.Name)
		}
	}
	return &scenario, nil
}

// LoadScenario parses a scenario file. Values from vars are available in the
// file as var.<name>.
func LoadScenario(fname string, vars map[string]string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(fname)
	if diags.HasErrors() {
		return nil, fmt.Errorf("error parsing %s: %w", fname, diags)
	}
	return decodeScenario(file, vars)
}

// ParseScenario parses scenario source from memory; used by tests and for
// reading scenarios from stdin.
func ParseScenario(src []byte, fname string, vars map[string]string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, fname)
	if diags.HasErrors() {
		return nil, fmt.Errorf("error parsing %s: %w", fname, diags)
	}
	return decodeScenario(file, vars)
}
