// Package metrics reports counters and timings to statsd.
package metrics

import (
	"time"

	"github.com/peterbourgon/g2s"
)

// PrefixStatter reports to statsd with an environment prefix on every bucket.
// The zero value discards everything.
type PrefixStatter struct {
	statter         g2s.Statter
	DevelopmentMode bool
}

// New dials statsd at addr over UDP. An empty addr yields a discarding statter.
func New(addr string, development bool) (PrefixStatter, error) {
	if addr == "" {
		return PrefixStatter{DevelopmentMode: development}, nil
	}
	s, err := g2s.Dial("udp", addr)
	if err != nil {
		return PrefixStatter{DevelopmentMode: development}, err
	}
	return PrefixStatter{statter: s, DevelopmentMode: development}, nil
}

// WithStatter wraps an existing statter, mostly for tests.
func WithStatter(s g2s.Statter, development bool) PrefixStatter {
	return PrefixStatter{statter: s, DevelopmentMode: development}
}

func (statter PrefixStatter) prefix() string {
	if statter.DevelopmentMode {
		return "dev."
	}
	return "prod."
}

// Time reports the time elapsed since start. Use it with defer.
func (statter PrefixStatter) Time(start time.Time, bucket string) {
	if statter.statter != nil {
		statter.statter.Timing(1.0, statter.prefix()+bucket, time.Since(start))
	}
}

func (statter PrefixStatter) Count(count int, bucket string) {
	if statter.statter != nil {
		statter.statter.Counter(1.0, statter.prefix()+bucket, count)
	}
}

func (statter PrefixStatter) Gauge(gauge string, bucket string) {
	if statter.statter != nil {
		statter.statter.Gauge(1.0, statter.prefix()+bucket, gauge)
	}
}
