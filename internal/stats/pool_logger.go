package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"genepool/internal/model"
)

var ErrLogDirExists = errors.New("experiment log directory already exists")

const (
	fitnessFile   = "fitness.csv"
	referenceFile = "reference_fitness.csv"
)

type PoolInfo struct {
	ID   int
	Name string
}

// PoolLogger writes the per-pool text logs of a run under one directory:
// gene_pools/gene_pool_<id>/fitness.csv, gene_pools/gene_pool_<id>/status-<tick>.txt
// and reference_fitness.csv at the top level.
type PoolLogger struct {
	dir string
	mu  sync.Mutex
}

// NewPoolLogger prepares dir. An existing directory is removed when
// overwrite is set and rejected otherwise.
func NewPoolLogger(dir string, overwrite bool) (*PoolLogger, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("log directory is required")
	}
	if _, err := os.Stat(dir); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("%w: %s", ErrLogDirExists, dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &PoolLogger{dir: dir}, nil
}

func (l *PoolLogger) Dir() string {
	return l.dir
}

func (l *PoolLogger) PoolDir(poolID int) string {
	return filepath.Join(l.dir, "gene_pools", fmt.Sprintf("gene_pool_%d", poolID))
}

// Init creates the pool directories and writes the CSV headers.
func (l *PoolLogger) Init(pools []PoolInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := []string{"tick"}
	for _, pool := range pools {
		dir := l.PoolDir(pool.ID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := appendCSV(filepath.Join(dir, fitnessFile), []string{"tick", "p0", "p25", "p75", "p100"}); err != nil {
			return err
		}
		header = append(header, pool.Name)
	}
	return appendCSV(filepath.Join(l.dir, referenceFile), header)
}

// LogFitnessPercentiles appends one row of max fitness percentiles over the
// evaluated members. Columns are left empty while nothing is evaluated.
func (l *PoolLogger) LogFitnessPercentiles(poolID int, tick uint64, members []model.MemberRecord) error {
	var scores []uint64
	for _, m := range members {
		if m.MaxFitness != nil {
			scores = append(scores, *m.MaxFitness)
		}
	}
	pcts, err := Percentiles(scores, FitnessPercentiles)
	if err != nil {
		return err
	}
	row := make([]string, 1+len(FitnessPercentiles))
	row[0] = strconv.FormatUint(tick, 10)
	for i, v := range pcts {
		row[i+1] = strconv.FormatUint(v, 10)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return appendCSV(filepath.Join(l.PoolDir(poolID), fitnessFile), row)
}

// LogStatus writes every evaluated member, best first, to status-<tick>.txt.
func (l *PoolLogger) LogStatus(poolID int, tick uint64, members []model.MemberRecord) error {
	evaluated := make([]model.MemberRecord, 0, len(members))
	for _, m := range members {
		if m.MaxFitness != nil {
			evaluated = append(evaluated, m)
		}
	}
	sort.SliceStable(evaluated, func(i, j int) bool {
		return *evaluated[i].MaxFitness > *evaluated[j].MaxFitness
	})

	var b strings.Builder
	for _, m := range evaluated {
		fmt.Fprintf(&b, "------------------\n(uid: %d, fitness: %d, rank: %d, evaluations: %d)\n",
			m.UID, *m.MaxFitness, m.Rank, m.NumEvaluations)
		fmt.Fprintf(&b, "frames: %d\n", m.Frames)
		fmt.Fprintf(&b, "raw_genome: %v\n", m.Raw)
		fmt.Fprintf(&b, "raw_genome_length: %d\n\n", len(m.Raw))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	path := filepath.Join(l.PoolDir(poolID), fmt.Sprintf("status-%d.txt", tick))
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// LogReference appends one reference_fitness.csv row, ordered by pool id.
func (l *PoolLogger) LogReference(tick uint64, results []model.ReferenceResult) error {
	sorted := append([]model.ReferenceResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PoolID < sorted[j].PoolID
	})
	row := []string{strconv.FormatUint(tick, 10)}
	for _, r := range sorted {
		row = append(row, strconv.FormatUint(r.Fitness, 10))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return appendCSV(filepath.Join(l.dir, referenceFile), row)
}

func appendCSV(path string, row []string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(row); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
