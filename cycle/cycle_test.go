package cycle_test

import (
	"sync"
	"testing"

	"github.com/grailbio/testutil/expect"

	"github.com/aptlab/selex/cycle"
	"github.com/aptlab/selex/pool"
)

func TestAddTracksTotalAndUniqueSize(t *testing.T) {
	p := pool.New()
	c := cycle.New("round1", 1, false, false, nil, nil, p)

	c.Add([]byte("ACGT"), 0, 4, 1)
	c.Add([]byte("ACGT"), 0, 4, 2)
	c.Add([]byte("TTTT"), 0, 4, 1)

	expect.EQ(t, c.TotalSize(), 4)
	expect.EQ(t, c.UniqueSize(), 2)
	expect.EQ(t, c.Size(), 2)
}

func TestCardinalityByIDAndSeq(t *testing.T) {
	p := pool.New()
	c := cycle.New("round1", 1, false, false, nil, nil, p)
	id := c.Add([]byte("GATTACA"), 1, 5, 3)

	expect.EQ(t, c.CardinalityID(id), 3)
	expect.EQ(t, c.CardinalitySeq([]byte("GATTACA")), 3)
	expect.EQ(t, c.CardinalitySeq([]byte("NOPE")), 0)
}

func TestContains(t *testing.T) {
	p := pool.New()
	c := cycle.New("round1", 1, false, false, nil, nil, p)
	id := c.Add([]byte("GATTACA"), 0, 7, 1)

	expect.True(t, c.ContainsID(id))
	expect.True(t, c.ContainsSeq([]byte("GATTACA")))
	expect.False(t, c.ContainsSeq([]byte("NOPE")))
}

func TestBarcodesAreCopiedDefensively(t *testing.T) {
	p := pool.New()
	b5 := []byte("AAA")
	c := cycle.New("round1", 1, false, false, b5, nil, p)
	b5[0] = 'T'
	expect.EQ(t, string(c.Barcode5()), "AAA")
}

func TestPoolAccessorReturnsSharedPool(t *testing.T) {
	p := pool.New()
	c := cycle.New("round1", 1, false, false, nil, nil, p)
	expect.True(t, c.Pool() == p)
}

func TestIterateYieldsAllEntries(t *testing.T) {
	p := pool.New()
	c := cycle.New("round1", 1, false, false, nil, nil, p)
	c.Add([]byte("AAAA"), 0, 4, 1)
	c.Add([]byte("CCCC"), 0, 4, 2)

	seen := map[int]int{}
	c.Iterate(func(e cycle.CountEntry) bool {
		seen[e.ID] = e.Count
		return true
	})
	expect.EQ(t, len(seen), 2)
}

func TestAddConcurrentSameSequenceAccumulatesCount(t *testing.T) {
	p := pool.New()
	c := cycle.New("round1", 1, false, false, nil, nil, p)
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add([]byte("SHARED"), 0, 6, 1)
		}()
	}
	wg.Wait()
	expect.EQ(t, c.UniqueSize(), 1)
	expect.EQ(t, c.TotalSize(), n)
}

func TestExperimentNavigation(t *testing.T) {
	p := pool.New()
	c0 := cycle.New("r0", 0, false, false, nil, nil, p)
	c1 := cycle.New("r1", 1, false, false, nil, nil, p)
	c2 := cycle.New("r2", 2, false, false, nil, nil, p)
	exp := cycle.NewExperiment([]*cycle.Cycle{c0, c1, c2})

	expect.True(t, exp.NextCycle(c0) == c1)
	expect.True(t, exp.NextCycle(c1) == c2)
	expect.True(t, exp.NextCycle(c2) == nil)

	expect.True(t, exp.PreviousCycle(c2) == c1)
	expect.True(t, exp.PreviousCycle(c0) == nil)

	expect.True(t, exp.ByName("r1") == c1)
	expect.True(t, exp.ByName("missing") == nil)
}

func TestExperimentNavigationOfNonMember(t *testing.T) {
	p := pool.New()
	member := cycle.New("r0", 0, false, false, nil, nil, p)
	stranger := cycle.New("stranger", 0, false, false, nil, nil, p)
	exp := cycle.NewExperiment([]*cycle.Cycle{member})

	expect.True(t, exp.NextCycle(stranger) == nil)
	expect.True(t, exp.PreviousCycle(stranger) == nil)
}
