package detect

import (
	"bytes"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistream/vistream/vision"
)

type fakeDetector struct {
	active *int32
	maxActive *int32
	calls *int32
}

func (d fakeDetector) Detect(images []vision.Image) ([][]vision.Detection, error) {
	cur := atomic.AddInt32(d.active, 1)
	for {
		max := atomic.LoadInt32(d.maxActive)
		if cur <= max || atomic.CompareAndSwapInt32(d.maxActive, max, cur) {
			break
		}
	}
	time.Sleep(10*time.Millisecond)
	atomic.AddInt32(d.active, -1)
	atomic.AddInt32(d.calls, 1)
	out := make([][]vision.Detection, len(images))
	return out, nil
}

func (d fakeDetector) InputDims() [2]int { return [2]int{416, 416} }
func (d fakeDetector) Categories() []string { return []string{"person"} }
func (d fakeDetector) Close() {}

func TestPoolLimitsConcurrency(t *testing.T) {
	var active, maxActive, calls int32
	pool, err := NewPool(2, func() (Detector, error) {
		return fakeDetector{&active, &maxActive, &calls}, nil
	})
	require.NoError(t, err)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := pool.Detect([]vision.Image{vision.NewImage(4, 4)})
			assert.NoError(t, err)
			assert.Len(t, out, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), atomic.LoadInt32(&calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&maxActive), int32(2))
}

func TestPoolMetadata(t *testing.T) {
	var active, maxActive, calls int32
	pool, err := NewPool(1, func() (Detector, error) {
		return fakeDetector{&active, &maxActive, &calls}, nil
	})
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, [2]int{416, 416}, pool.InputDims())
	assert.Equal(t, []string{"person"}, pool.Categories())
}

type blockingDetector struct {
	release chan bool
}

func (d blockingDetector) Detect(images []vision.Image) ([][]vision.Detection, error) {
	<-d.release
	return make([][]vision.Detection, len(images)), nil
}
func (d blockingDetector) InputDims() [2]int { return [2]int{416, 416} }
func (d blockingDetector) Categories() []string { return nil }
func (d blockingDetector) Close() {}

func TestPoolQueuePositions(t *testing.T) {
	release := make(chan bool)
	pool, err := NewPool(1, func() (Detector, error) {
		return blockingDetector{release}, nil
	})
	require.NoError(t, err)
	defer pool.Close()

	done := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			pool.Detect([]vision.Image{vision.NewImage(4, 4)})
			done <- true
		}()
	}

	// wait until one request holds the detector and the other is queued
	deadline := time.Now().Add(time.Second)
	for {
		pool.mu.Lock()
		waiting := len(pool.queue)
		pool.mu.Unlock()
		if waiting == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("second request never queued")
		}
		time.Sleep(time.Millisecond)
	}

	buf := new(bytes.Buffer)
	log.SetOutput(buf)
	pool.logQueue()
	log.SetOutput(os.Stderr)
	assert.Contains(t, buf.String(), "position in queue is 0")

	close(release)
	<-done
	<-done
}

func TestPoolCloseUnblocks(t *testing.T) {
	var active, maxActive, calls int32
	slow := fakeDetector{&active, &maxActive, &calls}
	pool, err := NewPool(1, func() (Detector, error) {
		return slow, nil
	})
	require.NoError(t, err)

	// occupy the only detector, then close while a second request waits
	started := make(chan bool)
	errCh := make(chan error, 1)
	go func() {
		started <- true
		_, err := pool.Detect([]vision.Image{vision.NewImage(4, 4)})
		errCh <- err
	}()
	<-started
	time.Sleep(time.Millisecond)
	pool.Close()

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("Detect did not return after Close")
	}
}
