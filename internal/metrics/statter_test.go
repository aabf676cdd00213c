package metrics

import (
	"sync"
	"testing"
	"time"
)

type recordingStatter struct {
	mu      sync.Mutex
	buckets []string
}

func (r *recordingStatter) Counter(sampleRate float32, bucket string, n ...int) {
	r.record(bucket)
}

func (r *recordingStatter) Timing(sampleRate float32, bucket string, d ...time.Duration) {
	r.record(bucket)
}

func (r *recordingStatter) Gauge(sampleRate float32, bucket string, value ...string) {
	r.record(bucket)
}

func (r *recordingStatter) record(bucket string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets = append(r.buckets, bucket)
}

func TestPrefixes(t *testing.T) {
	rec := &recordingStatter{}
	dev := WithStatter(rec, true)
	dev.Count(1, "views.counted")
	prod := WithStatter(rec, false)
	prod.Time(time.Now(), "http.get_post")
	prod.Gauge("3", "subscribers")

	want := []string{"dev.views.counted", "prod.http.get_post", "prod.subscribers"}
	if len(rec.buckets) != len(want) {
		t.Fatalf("expected %v, got %v", want, rec.buckets)
	}
	for i := range want {
		if rec.buckets[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, rec.buckets)
		}
	}
}

func TestZeroValueDiscards(t *testing.T) {
	var s PrefixStatter
	s.Count(1, "x")
	s.Time(time.Now(), "y")
	s.Gauge("1", "z")

	empty, err := New("", true)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	empty.Count(1, "x")
}
