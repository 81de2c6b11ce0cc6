package solver

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// Recorded solve outcomes.
const (
	StatusOK         = "ok"
	StatusNoSolution = "no_solution"
	StatusFatal      = "fatal"
)

type replayFile struct {
	Kind         string              `yaml:"kind"`
	Origins      []string            `yaml:"origins"`
	Destinations []replayDestination `yaml:"destinations"`
	Solves       []replaySolve       `yaml:"solves"`
}

type replayDestination struct {
	ID     string   `yaml:"id"`
	Weight *float64 `yaml:"weight"`
}

type replaySolve struct {
	Day          string           `yaml:"day"`
	Time         string           `yaml:"time"`
	Status       string           `yaml:"status"`
	Observations []map[string]any `yaml:"observations"`
}

type recordedObservation struct {
	fields map[string]string
	value  float64
}

type recordedSolve struct {
	status       string
	observations []recordedObservation
}

// ReplayLog is a recorded sequence of network solves, one per analysis time,
// together with the dataset they were solved for.
type ReplayLog struct {
	Kind    Kind
	Dataset *Dataset
	solves  map[int64]recordedSolve
}

// LoadReplay reads a replay log from a YAML file.
func LoadReplay(path string) (*ReplayLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingReplay, err)
	}
	return ParseReplay(data)
}

// ParseReplay decodes a YAML replay log.
func ParseReplay(data []byte) (*ReplayLog, error) {
	var f replayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReplay, err)
	}

	kind, err := KindByName(f.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReplay, err)
	}

	dests := make([]Destination, 0, len(f.Destinations))
	for _, d := range f.Destinations {
		w := 1.0
		if d.Weight != nil {
			w = *d.Weight
		}
		dests = append(dests, Destination{ID: d.ID, Weight: w})
	}
	ds, err := NewDataset(f.Origins, dests)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReplay, err)
	}

	log := &ReplayLog{Kind: kind, Dataset: ds, solves: make(map[int64]recordedSolve, len(f.Solves))}
	for i, s := range f.Solves {
		at, err := parseInstant(s.Day, s.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: solve %d: %w", ErrInvalidReplay, i, err)
		}
		status := strings.ToLower(strings.TrimSpace(s.Status))
		if status == "" {
			status = StatusOK
		}
		if status != StatusOK && status != StatusNoSolution && status != StatusFatal {
			return nil, fmt.Errorf("%w: solve %d: unknown status %q", ErrInvalidReplay, i, s.Status)
		}

		rec := recordedSolve{status: status}
		for j, raw := range s.Observations {
			obs, err := decodeRecorded(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: solve %d observation %d: %w", ErrInvalidReplay, i, j, err)
			}
			if kind == ODCostMatrix {
				if err := checkODPair(ds, obs); err != nil {
					return nil, fmt.Errorf("%w: solve %d observation %d: %w", ErrInvalidReplay, i, j, err)
				}
			}
			rec.observations = append(rec.observations, obs)
		}
		log.solves[at.Time().Unix()] = rec
	}
	return log, nil
}

// checkODPair rejects OD observations naming an origin or destination the
// dataset does not know; their weights would fall outside the targets total.
func checkODPair(ds *Dataset, obs recordedObservation) error {
	pair, err := DecodeODPair(obs.fields)
	if err != nil {
		return err
	}
	if !ds.HasOrigin(pair.Origin) {
		return fmt.Errorf("%w: %q", ErrUnknownOrigin, pair.Origin)
	}
	if !ds.HasDestination(pair.Destination) {
		return fmt.Errorf("%w: %q", ErrUnknownDestination, pair.Destination)
	}
	return nil
}

func parseInstant(day, clock string) (timewindow.Timestamp, error) {
	d, err := timewindow.ParseDay(day)
	if err != nil {
		return timewindow.Timestamp{}, err
	}
	c, err := timewindow.ParseClock(clock)
	if err != nil {
		return timewindow.Timestamp{}, err
	}
	return timewindow.At(d, c), nil
}

func decodeRecorded(raw map[string]any) (recordedObservation, error) {
	obs := recordedObservation{fields: make(map[string]string, len(raw))}
	hasValue := false
	for k, v := range raw {
		if k == "value" {
			f, ok := toFloat(v)
			if !ok {
				return obs, fmt.Errorf("%w: %v", ErrMissingValue, v)
			}
			obs.value, hasValue = f, true
			continue
		}
		obs.fields[k] = fmt.Sprint(v)
	}
	if !hasValue {
		return obs, ErrMissingValue
	}
	return obs, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// Replay serves a ReplayLog as a Solver, keeping only keys accepted by keep.
type Replay[K comparable] struct {
	byTime map[int64][]Observation[K]
	status map[int64]string
}

// NewReplay decodes every recorded key up front so malformed logs fail before
// any solving starts.
func NewReplay[K comparable](log *ReplayLog, decode KeyDecoder[K], keep func(K) bool) (*Replay[K], error) {
	r := &Replay[K]{
		byTime: make(map[int64][]Observation[K], len(log.solves)),
		status: make(map[int64]string, len(log.solves)),
	}
	for unix, s := range log.solves {
		r.status[unix] = s.status
		obs := make([]Observation[K], 0, len(s.observations))
		for _, rec := range s.observations {
			key, err := decode(rec.fields)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidReplay, err)
			}
			if keep != nil && !keep(key) {
				continue
			}
			obs = append(obs, Observation[K]{Key: key, Value: rec.value})
		}
		r.byTime[unix] = obs
	}
	return r, nil
}

// Solve returns the recorded observations for at. Times absent from the log
// have no solution.
func (r *Replay[K]) Solve(ctx context.Context, at timewindow.Timestamp) ([]Observation[K], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unix := at.Time().Unix()
	switch r.status[unix] {
	case StatusOK:
		return append([]Observation[K](nil), r.byTime[unix]...), nil
	case StatusFatal:
		return nil, fmt.Errorf("%w at %s", ErrReplayFatal, at)
	default:
		return nil, fmt.Errorf("%w at %s", ErrNoSolution, at)
	}
}

// ODFactory builds per-unit OD replay solvers restricted to each unit's origins.
func ODFactory(log *ReplayLog) Factory[ODPair] {
	return func(ds *Dataset) (Solver[ODPair], error) {
		origins := make(map[string]struct{})
		for _, o := range ds.Origins() {
			origins[o] = struct{}{}
		}
		r, err := NewReplay(log, DecodeODPair, func(k ODPair) bool {
			_, ok := origins[k.Origin]
			return ok
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}
