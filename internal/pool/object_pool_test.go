package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_GetPutResets(t *testing.T) {
	p := NewPool(func() []int { return make([]int, 0, 4) }, func(s *[]int) { *s = (*s)[:0] })

	s := p.Get()
	s = append(s, 1, 2)
	p.Put(s)

	st := p.Stats()
	assert.Equal(t, int64(1), st.Gets)
	assert.Equal(t, int64(1), st.Puts)
	assert.Equal(t, int64(1), st.News)
}

func TestBufferPool_DropsOversized(t *testing.T) {
	p := NewBufferPool(128)

	small := p.Get()
	small.WriteString("abc")
	p.Put(small)

	big := bytes.NewBuffer(make([]byte, 0, 1024))
	p.Put(big)

	st := p.Stats()
	assert.Equal(t, int64(1), st.Puts)
	assert.Equal(t, int64(1), st.Drops)

	got := p.Get()
	assert.Equal(t, 0, got.Len())
}

func TestPoolStats_HitRate(t *testing.T) {
	assert.Equal(t, 0.0, PoolStats{}.HitRate())
	assert.Equal(t, 0.75, PoolStats{Gets: 4, News: 1}.HitRate())
	assert.Equal(t, 0.0, PoolStats{Gets: 1, News: 3}.HitRate())
}
