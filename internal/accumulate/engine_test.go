package accumulate

import (
	"math"
	"math/rand"
	"testing"
)

type observation struct {
	key   string
	value float64
}

const tolerance = 1e-9

func sampleObservations() []observation {
	rng := rand.New(rand.NewSource(42))
	keys := []string{"a->x", "a->y", "b->x", "b->y", "c->z"}
	var obs []observation
	for slice := 0; slice < 200; slice++ {
		for _, k := range keys {
			if rng.Intn(3) == 0 {
				continue
			}
			obs = append(obs, observation{key: k, value: 5 + rng.Float64()*55})
		}
	}
	return obs
}

func feed(obs []observation) *Engine[string] {
	e := New[string]()
	for _, o := range obs {
		e.Update(o.key, o.value)
	}
	return e
}

func assertSameStats(t *testing.T, want, got map[string]Stats) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("expected %d keys, got %d", len(want), len(got))
	}
	for k, w := range want {
		g, ok := got[k]
		if !ok {
			t.Fatalf("missing key %s", k)
		}
		if w.TimesObserved != g.TimesObserved {
			t.Fatalf("%s: expected count %d, got %d", k, w.TimesObserved, g.TimesObserved)
		}
		if w.Min != g.Min || w.Max != g.Max {
			t.Fatalf("%s: expected min/max %v/%v, got %v/%v", k, w.Min, w.Max, g.Min, g.Max)
		}
		if math.Abs(w.Mean-g.Mean) > tolerance {
			t.Fatalf("%s: expected mean %.12f, got %.12f", k, w.Mean, g.Mean)
		}
	}
}

func TestUpdateTracksCountMinMaxMean(t *testing.T) {
	e := New[string]()
	for _, v := range []float64{12, 7, 20, 9} {
		e.Update("o1->d1", v)
	}
	e.Update("o1->d2", 3)

	stats := e.Finalize()
	s := stats["o1->d1"]
	if s.TimesObserved != 4 {
		t.Fatalf("expected 4 observations, got %d", s.TimesObserved)
	}
	if s.Min != 7 || s.Max != 20 {
		t.Fatalf("expected min 7 max 20, got %v %v", s.Min, s.Max)
	}
	if s.Mean != 12 {
		t.Fatalf("expected mean 12, got %v", s.Mean)
	}
	if got := stats["o1->d2"]; got.TimesObserved != 1 || got.Mean != 3 || got.Min != 3 || got.Max != 3 {
		t.Fatalf("unexpected single-observation stats %+v", got)
	}
	if e.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", e.Len())
	}
}

func TestFinalizeIsOrderIndependent(t *testing.T) {
	obs := sampleObservations()
	want := feed(obs).Finalize()

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		shuffled := append([]observation(nil), obs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assertSameStats(t, want, feed(shuffled).Finalize())
	}
}

func TestMergeMatchesSingleEngine(t *testing.T) {
	obs := sampleObservations()
	want := feed(obs).Finalize()

	for _, cut := range []int{0, 1, len(obs) / 3, len(obs) / 2, len(obs) - 1, len(obs)} {
		left := feed(obs[:cut])
		right := feed(obs[cut:])
		left.Merge(right)
		assertSameStats(t, want, left.Finalize())
	}
}

func TestMergeWeightsMeansByCount(t *testing.T) {
	a := New[string]()
	a.Update("k", 10)
	a.Update("k", 20)
	b := New[string]()
	b.Update("k", 40)
	b.Update("other", 1)

	a.Merge(b)
	stats := a.Finalize()

	if got := stats["k"]; got.TimesObserved != 3 || math.Abs(got.Mean-70.0/3) > tolerance || got.Min != 10 || got.Max != 40 {
		t.Fatalf("unexpected merged stats %+v", got)
	}
	if got := stats["other"]; got.TimesObserved != 1 {
		t.Fatalf("expected disjoint key carried over, got %+v", got)
	}
	if b.Counts()["k"] != 1 {
		t.Fatalf("merge must not modify its argument")
	}

	a.Update("other", 5)
	if b.Finalize()["other"].TimesObserved != 1 {
		t.Fatalf("merged engine must not share state with its argument")
	}
}

func TestMeanStaysAccurateOnLongRuns(t *testing.T) {
	e := New[string]()
	const n = 1_000_000
	for i := 0; i < n; i++ {
		e.Update("k", 0.1)
	}
	if got := e.Finalize()["k"].Mean; math.Abs(got-0.1) > 1e-15 {
		t.Fatalf("expected mean 0.1, got %.17f", got)
	}
}

func TestRowsAreSorted(t *testing.T) {
	e := New[string]()
	for _, k := range []string{"c", "a", "b"} {
		e.Update(k, 1)
	}
	rows := e.Rows(func(a, b string) bool { return a < b })
	if len(rows) != 3 || rows[0].Key != "a" || rows[1].Key != "b" || rows[2].Key != "c" {
		t.Fatalf("unexpected row order %+v", rows)
	}
	if rows[0].TimesObserved != 1 {
		t.Fatalf("expected embedded stats on rows, got %+v", rows[0])
	}
}
