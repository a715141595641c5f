package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	src := []byte(`
stream "cam1" {
	url = "http://localhost:8080"
	images = "frames/*.jpg"
	rate = 10
	count = 100
	score = 0.5
	categories = ["person", "car"]
	track = true
	labels = true
}

stream "cam2" {
	url = "http://localhost:8080"
	images = "other/*.jpg"
}
`)
	scenario, err := ParseScenario(src, "test.hcl", nil)
	require.NoError(t, err)
	require.Len(t, scenario.Streams, 2)

	cam1 := scenario.Streams[0]
	assert.Equal(t, "cam1", cam1.Name)
	assert.Equal(t, "http://localhost:8080", cam1.URL)
	assert.Equal(t, "frames/*.jpg", cam1.Images)
	assert.Equal(t, 10.0, cam1.Rate)
	assert.Equal(t, 100, cam1.Count)
	assert.Equal(t, 0.5, cam1.Score)
	assert.Equal(t, []string{"person", "car"}, cam1.Categories)
	assert.True(t, cam1.Track)
	assert.True(t, cam1.Labels)

	// optional fields default to zero values
	cam2 := scenario.Streams[1]
	assert.Equal(t, 0.0, cam2.Rate)
	assert.Equal(t, 0, cam2.Count)
	assert.False(t, cam2.Track)
}

func TestParseScenarioVars(t *testing.T) {
	src := []byte(`
stream "cam" {
	url = var.server
	images = "${var.dir}/*.jpg"
}
`)
	scenario, err := ParseScenario(src, "test.hcl", map[string]string{
		"server": "http://example.com:8080",
		"dir": "/tmp/frames",
	})
	require.NoError(t, err)
	require.Len(t, scenario.Streams, 1)
	assert.Equal(t, "http://example.com:8080", scenario.Streams[0].URL)
	assert.Equal(t, "/tmp/frames/*.jpg", scenario.Streams[0].Images)
}

func TestParseScenarioMissingVar(t *testing.T) {
	src := []byte(`
stream "cam" {
	url = var.server
	images = "frames/*.jpg"
}
`)
	_, err := ParseScenario(src, "test.hcl", nil)
	assert.Error(t, err)
}

func TestParseScenarioMissingFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
stream "cam" {
	images = "frames/*.jpg"
}
`), "test.hcl", nil)
	assert.Error(t, err)

	_, err = ParseScenario([]byte(`
stream "cam" {
	url = "http://localhost:8080"
}
`), "test.hcl", nil)
	assert.Error(t, err)
}

func TestParseScenarioBadSyntax(t *testing.T) {
	_, err := ParseScenario([]byte(`stream "cam" {`), "test.hcl", nil)
	assert.Error(t, err)
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, int64(0), int64((&Stream{}).frameInterval()))
	assert.Equal(t, int64(100e6), int64((&Stream{Rate: 10}).frameInterval()))
}
