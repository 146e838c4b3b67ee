package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerator_UniqueAndIncreasing(t *testing.T) {
	req := require.New(t)
	g := NewGenerator(7)

	prev := int64(0)
	for i := 0; i < 10000; i++ {
		id := g.Next()
		req.Greater(id, prev)
		req.Equal(int64(7), Node(id))
		prev = id
	}
}

func TestGenerator_Concurrent(t *testing.T) {
	g := NewGenerator(3)
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				id := g.Next()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, 8000)
}

func TestNewGenerator_ClampsNode(t *testing.T) {
	require.Equal(t, int64(1), Node(NewGenerator(5000).Next()))
}
