package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/container"
)

type named string

func (n named) Name() string {
	return string(n)
}

func TestRegistryDeferredMutation(t *testing.T) {
	r := container.NewOrderedRegistry[named]()
	r.Add("a")
	r.Add("b")
	r.Add("c")
	// 未Prepare前不生效
	assert.Equal(t, 0, r.Len())
	assert.True(t, r.Has("a"))
	_, ok := r.Get("a")
	assert.False(t, ok)

	assert.Empty(t, r.Prepare())
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())

	r.Remove("b")
	assert.False(t, r.Has("b"))
	r.Add("d")
	r.Prepare()
	assert.Equal(t, []string{"a", "c", "d"}, r.Names())
	_, ok = r.Get("b")
	assert.False(t, ok)
}

func TestRegistryDropsDuplicates(t *testing.T) {
	r := container.NewOrderedRegistry[named]()
	r.Add("a")
	r.Prepare()
	r.Add("a")
	dropped := r.Prepare()
	assert.Equal(t, []named{"a"}, dropped)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemoveThenReAdd(t *testing.T) {
	r := container.NewOrderedRegistry[named]()
	r.Add("a")
	r.Add("b")
	r.Prepare()
	r.Remove("a")
	r.Add("a")
	assert.Empty(t, r.Prepare())
	assert.Equal(t, []string{"b", "a"}, r.Names())
}

func TestRegistryRemoveCancelsPendingAdd(t *testing.T) {
	r := container.NewOrderedRegistry[named]()
	r.Add("a")
	r.Remove("a")
	assert.False(t, r.Has("a"))
	adds, removes := r.Pending()
	assert.Equal(t, 0, adds)
	assert.Equal(t, 0, removes)
	r.Prepare()
	assert.Equal(t, 0, r.Len())
}

func TestPriorityQueue(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	q.HeapPush("far", 10)
	q.HeapPush("near", 1)
	q.HeapPush("mid", 5)
	assert.Equal(t, 3, q.Len())
	v, p := q.HeapPop()
	assert.Equal(t, "near", v)
	assert.Equal(t, 1.0, p)
	v, _ = q.HeapPop()
	assert.Equal(t, "mid", v)
	v, _ = q.HeapPop()
	assert.Equal(t, "far", v)
	assert.Equal(t, 0, q.Len())
}
