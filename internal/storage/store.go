// Package storage archives recorded runs on disk: metadata.json plus a
// states.csv trajectory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/sim"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return errors.Wrap(os.MkdirAll(s.baseDir, 0755), "create store")
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Model       string             `json:"model"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Controller  string             `json:"controller"`
	Params      map[string]float64 `json:"params,omitempty"`
	DofNames    []string           `json:"dof_names"`
	Steps       int                `json:"steps"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Trajectory is a run read back from states.csv.
type Trajectory struct {
	DofNames []string
	Times    []float64
	States   []sim.State
	Controls []sim.Control
}

// Save writes result under a new run directory and returns its ID.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	now := s.now()
	runID, runDir, err := s.newRunDir(cfg.Model, now)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Model:       cfg.Model,
		Timestamp:   now,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Integrator:  cfg.Integrator,
		Controller:  cfg.Controller,
		Params:      cfg.Params,
		DofNames:    result.DofNames,
		Steps:       result.StepsTaken,
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

// newRunDir creates a fresh directory; runs saved within the same second
// get a numeric suffix.
func (s *Store) newRunDir(model string, now time.Time) (string, string, error) {
	base := fmt.Sprintf("%s_%d", model, now.Unix())
	for i := 0; ; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s_%d", base, i)
		}
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", errors.Wrap(err, "create run directory")
		}
	}
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create metadata")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode metadata")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeStates lays out one row per recorded sample: time, then q:<dof>,
// v:<dof> and u:<dof> columns. The first sample precedes any control and
// records zeros.
func writeStates(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create states")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	names := result.DofNames
	header := []string{"time"}
	for _, prefix := range []string{"q", "v", "u"} {
		for _, name := range names {
			header = append(header, prefix+":"+name)
		}
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	n := len(names)
	for i, x := range result.States {
		row := make([]string, 0, 1+3*n)
		row = append(row, formatFloat(result.Times[i]))
		for _, val := range x {
			row = append(row, formatFloat(val))
		}
		var u sim.Control
		if i > 0 && i-1 < len(result.Controls) {
			u = result.Controls[i-1]
		}
		for j := 0; j < n; j++ {
			val := 0.0
			if j < len(u) {
				val = u[j]
			}
			row = append(row, formatFloat(val))
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush states")
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, errors.Wrap(err, "list runs")
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrRunNotFound, runID)
		}
		return nil, errors.Wrap(err, "read metadata")
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "decode metadata of %s", runID)
	}
	return &meta, nil
}

// LoadStates reads a run's trajectory back. Rows that fail to parse are
// skipped.
func (s *Store) LoadStates(runID string) (*Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrRunNotFound, runID)
		}
		return nil, errors.Wrap(err, "open states")
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read states")
	}

	traj := &Trajectory{}
	if len(records) == 0 {
		return traj, nil
	}
	for _, col := range records[0][1:] {
		if name, ok := strings.CutPrefix(col, "q:"); ok {
			traj.DofNames = append(traj.DofNames, name)
		}
	}
	n := len(traj.DofNames)

	for _, record := range records[1:] {
		if len(record) != 1+3*n {
			continue
		}
		vals := make([]float64, len(record))
		ok := true
		for j, field := range record {
			if vals[j], err = strconv.ParseFloat(field, 64); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		traj.Times = append(traj.Times, vals[0])
		traj.States = append(traj.States, sim.State(vals[1:1+2*n]))
		traj.Controls = append(traj.Controls, sim.Control(vals[1+2*n:]))
	}
	return traj, nil
}
