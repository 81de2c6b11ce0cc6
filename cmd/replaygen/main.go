// Command replaygen writes a synthetic OD cost matrix replay log for trying
// out the accessibility tools without a network engine.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanspareilsmyn/transitlens/internal/solver"
	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

type destination struct {
	ID     string  `yaml:"id"`
	Weight float64 `yaml:"weight"`
}

type solve struct {
	Day          string           `yaml:"day"`
	Time         string           `yaml:"time"`
	Status       string           `yaml:"status,omitempty"`
	Observations []map[string]any `yaml:"observations,omitempty"`
}

type replay struct {
	Kind         string        `yaml:"kind"`
	Origins      []string      `yaml:"origins"`
	Destinations []destination `yaml:"destinations"`
	Solves       []solve       `yaml:"solves"`
}

func main() {
	var (
		out       = flag.String("out", "replay.yaml", "Output file")
		origins   = flag.Int("origins", 20, "Number of origins")
		dests     = flag.Int("destinations", 50, "Number of destinations")
		day       = flag.String("day", "Wednesday", "Weekday name or YYYY-MM-DD")
		start     = flag.String("start", "08:00", "Window start (HH:MM)")
		end       = flag.String("end", "09:00", "Window end (HH:MM)")
		increment = flag.Duration("increment", 10*time.Minute, "Time between solves")
		cutoff    = flag.Float64("cutoff", 45, "Travel time cutoff in minutes")
		failRate  = flag.Float64("fail-rate", 0.05, "Share of solves recorded without a solution")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	window := timewindow.Window{StartDay: *day, StartTime: *start, EndDay: *day, EndTime: *end, Increment: *increment}
	times, err := window.Timestamps()
	if err != nil {
		log.Fatalf("Invalid window: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	r := generate(rng, *origins, *dests, times, *cutoff, *failRate)

	data, err := yaml.Marshal(r)
	if err != nil {
		log.Fatalf("Error marshalling replay: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("Error writing %s: %v", *out, err)
	}
	log.Printf("Wrote %d solves for %d origins and %d destinations to %s", len(r.Solves), *origins, *dests, *out)
}

// generate places origins and destinations on a unit square and derives a
// travel time from their distance plus a per-solve wait, so reachability
// varies over the window.
func generate(rng *rand.Rand, nOrigins, nDests int, times []timewindow.Timestamp, cutoff, failRate float64) replay {
	type point struct{ x, y float64 }
	r := replay{Kind: solver.ODCostMatrix.Name()}

	originAt := make([]point, nOrigins)
	for i := range originAt {
		r.Origins = append(r.Origins, fmt.Sprintf("o%03d", i))
		originAt[i] = point{rng.Float64(), rng.Float64()}
	}
	destAt := make([]point, nDests)
	for i := range destAt {
		r.Destinations = append(r.Destinations, destination{ID: fmt.Sprintf("d%03d", i), Weight: float64(1 + rng.Intn(5))})
		destAt[i] = point{rng.Float64(), rng.Float64()}
	}

	for _, at := range times {
		s := solve{Day: at.Day().String(), Time: timewindow.FormatClock(at.SinceMidnight())}
		if rng.Float64() < failRate {
			s.Status = solver.StatusNoSolution
			r.Solves = append(r.Solves, s)
			continue
		}
		for i, o := range originAt {
			for j, d := range destAt {
				dx, dy := o.x-d.x, o.y-d.y
				minutes := 60*(dx*dx+dy*dy) + rng.Float64()*15
				if minutes > cutoff {
					continue
				}
				s.Observations = append(s.Observations, map[string]any{
					"origin":      r.Origins[i],
					"destination": r.Destinations[j].ID,
					"value":       minutes,
				})
			}
		}
		r.Solves = append(r.Solves, s)
	}
	return r
}
