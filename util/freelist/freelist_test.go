package freelist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lottery/util/freelist"
)

func TestLowestFirst(t *testing.T) {
	fl := freelist.NewFreeList(4)
	for want := 0; want < 4; want++ {
		i, ok := fl.Alloc()
		assert.True(t, ok)
		assert.Equal(t, want, i)
	}
	_, ok := fl.Alloc()
	assert.False(t, ok)

	assert.True(t, fl.Free(2))
	assert.True(t, fl.Free(0))
	i, _ := fl.Alloc()
	assert.Equal(t, 0, i)
	i, _ = fl.Alloc()
	assert.Equal(t, 2, i)
}

func TestDoubleFree(t *testing.T) {
	fl := freelist.NewFreeList(2)
	i, _ := fl.Alloc()
	assert.True(t, fl.Free(i))
	assert.False(t, fl.Free(i))
	assert.False(t, fl.Free(5))
	assert.Equal(t, 2, fl.Len())
	assert.Equal(t, 2, fl.Cap())
}
