package reembed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, 10, 4)

	p.batch(3, 0)
	assert.Empty(t, buf.String(), "below the redraw interval")

	p.batch(1, 1)
	assert.Contains(t, buf.String(), "embedding 5/10 (50%) embedded=4 skipped=1")

	p.batch(20, 0)
	p.done()
	out := buf.String()
	assert.Contains(t, out, "embedding 10/10 (100%) embedded=24 skipped=1 eta=0s")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgress_ETA(t *testing.T) {
	p := newProgress(nil, 4, 1)
	assert.Zero(t, p.eta(), "nothing seen yet")

	p.started = time.Now().Add(-2 * time.Second)
	p.batch(1, 0)
	assert.InDelta(t, (6 * time.Second).Seconds(), p.eta().Seconds(), 1)
}

func TestProgress_NilWriter(t *testing.T) {
	p := newProgress(nil, 0, 0)
	p.batch(1, 0)
	p.done()
	assert.Equal(t, 0, p.seen())
}
