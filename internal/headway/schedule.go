package headway

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// Schedule holds the departure times of each stop.
type Schedule map[string][]time.Duration

type scheduleFile struct {
	Stops []struct {
		ID         string   `yaml:"id"`
		Departures []string `yaml:"departures"`
	} `yaml:"stops"`
}

// LoadSchedule reads a YAML stop schedule:
//
//	stops:
//	  - id: S1
//	    departures: ["07:58", "08:12", "25:05"]
func LoadSchedule(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingSchedule, err)
	}
	return ParseSchedule(data)
}

// ParseSchedule decodes a YAML stop schedule.
func ParseSchedule(data []byte) (Schedule, error) {
	var f scheduleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	out := make(Schedule, len(f.Stops))
	for _, s := range f.Stops {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: stop without id", ErrInvalidSchedule)
		}
		if _, dup := out[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stop %q", ErrInvalidSchedule, s.ID)
		}
		deps := make([]time.Duration, 0, len(s.Departures))
		for _, raw := range s.Departures {
			d, err := timewindow.ParseClock(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: stop %q: %w", ErrInvalidSchedule, s.ID, err)
			}
			deps = append(deps, d)
		}
		out[s.ID] = deps
	}
	return out, nil
}

// StopIDs returns the stop ids in sorted order.
func (s Schedule) StopIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
