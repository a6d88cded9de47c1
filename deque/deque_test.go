package deque

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArrDeque_Capacity(t *testing.T) {
	assert.Equal(t, 8, NewArrDeque(0).Capacity())
	assert.Equal(t, 16, NewArrDeque(9).Capacity())
	assert.Equal(t, 4000, NewArrDeque(4000).Capacity())
}

func TestArrDeque_Funcs(t *testing.T) {
	d := NewArrDeque(8)
	assert.True(t, d.IsEmpty())

	d.AddLast(1)
	d.AddLast(2)
	d.AddFirst(0)
	require.Equal(t, 3, d.Size())
	assert.Equal(t, 0, d.Get(0))
	assert.Equal(t, 2, d.Get(2))

	item, ok := d.RemoveLast()
	assert.True(t, ok)
	assert.Equal(t, 2, item)

	item, ok = d.RemoveFirst()
	assert.True(t, ok)
	assert.Equal(t, 0, item)

	item, ok = d.RemoveFirst()
	assert.True(t, ok)
	assert.Equal(t, 1, item)

	_, ok = d.RemoveFirst()
	assert.False(t, ok)
	_, ok = d.RemoveLast()
	assert.False(t, ok)
}

func TestArrDeque_Grow(t *testing.T) {
	d := NewArrDeque(8)
	for i := 0; i < 20; i++ {
		d.AddLast(i)
	}
	// 队首环绕到数组末尾
	d.AddFirst(-1)

	require.Equal(t, 21, d.Size())
	assert.Equal(t, 32, d.Capacity())

	var got []int
	d.Traverse(func(i int, item int) {
		assert.Equal(t, i-1, item)
		got = append(got, item)
	})
	assert.Len(t, got, 21)
}

func TestArrDeque_GetOutOfRange(t *testing.T) {
	d := NewArrDeque(8)
	d.AddLast(1)
	assert.Panics(t, func() { d.Get(1) })
}

func BenchmarkArrDeque_AddFirst(b *testing.B) {
	d := NewArrDeque(4000)
	for i := 0; i < b.N; i++ {
		d.AddFirst(1000)
		d.RemoveFirst()
	}
}

func BenchmarkArrDeque_RemoveLast(b *testing.B) {
	d := NewArrDeque(4000)
	for i := 0; i < b.N; i++ {
		d.AddLast(1000)
		d.RemoveLast()
	}
}
