package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilerStats(t *testing.T) {
	p := NewProfiler()
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }

	p.BeginScope("submit")
	clock = clock.Add(1500 * time.Microsecond)
	p.EndScope("submit")
	p.BeginScope("present")
	p.EndScope("present")
	p.BeginScope("submit")
	p.EndScope("submit")

	p.SetCount("frame", 7)
	p.Inc("skipped")
	p.Inc("skipped")

	assert.Equal(t, []string{"submit", "present"}, p.Order)
	assert.Equal(t, "submit=0.00ms present=0.00ms frame=7 skipped=2", p.Stats())

	p.BeginScope("submit")
	clock = clock.Add(1500 * time.Microsecond)
	p.EndScope("submit")
	assert.Equal(t, "submit=1.50ms present=0.00ms frame=7 skipped=2", p.Stats())

	p.Reset()
	assert.Equal(t, time.Duration(0), p.Scopes["submit"])
}

func TestEndWithoutBeginIsIgnored(t *testing.T) {
	p := NewProfiler()
	p.EndScope("never")
	assert.Empty(t, p.Scopes)
	assert.Empty(t, p.Stats())
}
