package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one experiment run.
type RunRecord struct {
	VersionedRecord
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	Scape       string    `json:"scape"`
	Seed        int64     `json:"seed"`
	Ticks       uint64    `json:"ticks"`
	Pools       []string  `json:"pools"`
	BestFitness uint64    `json:"best_fitness"`
	Completed   bool      `json:"completed"`
}

// MemberRecord is one pool member at snapshot time.
type MemberRecord struct {
	UID            uint64   `json:"uid"`
	Rank           int      `json:"rank"`
	NumEvaluations int      `json:"num_evaluations"`
	MaxFitness     *uint64  `json:"max_fitness,omitempty"`
	LastFitness    []uint64 `json:"last_fitness,omitempty"`
	Raw            []uint64 `json:"raw"`
	Frames         int      `json:"frames"`
	Fingerprint    string   `json:"fingerprint"`
}

// PoolSnapshot is the full population of one pool after a tick.
type PoolSnapshot struct {
	VersionedRecord
	RunID    string         `json:"run_id"`
	PoolID   int            `json:"pool_id"`
	PoolName string         `json:"pool_name"`
	Tick     uint64         `json:"tick"`
	Members  []MemberRecord `json:"members"`
}

// TickDiagnostics summarizes one pool after one experiment tick. Fitness
// statistics cover evaluated members only.
type TickDiagnostics struct {
	Tick                 uint64  `json:"tick"`
	PoolID               int     `json:"pool_id"`
	PoolName             string  `json:"pool_name"`
	Population           int     `json:"population"`
	Evaluated            int     `json:"evaluated"`
	BestFitness          uint64  `json:"best_fitness"`
	MeanFitness          float64 `json:"mean_fitness"`
	StdDevFitness        float64 `json:"stddev_fitness"`
	P0                   float64 `json:"p0"`
	P25                  float64 `json:"p25"`
	P75                  float64 `json:"p75"`
	P100                 float64 `json:"p100"`
	MaxRank              int     `json:"max_rank"`
	Culled               int     `json:"culled"`
	Offspring            int     `json:"offspring"`
	FingerprintDiversity int     `json:"fingerprint_diversity"`
	MeanGenomeLength     float64 `json:"mean_genome_length"`
}

type LineageRecord struct {
	VersionedRecord
	PoolID      int      `json:"pool_id"`
	UID         uint64   `json:"uid"`
	Parents     []uint64 `json:"parents,omitempty"`
	Operation   string   `json:"operation"`
	Tick        uint64   `json:"tick"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}

// ReferenceResult is the score of a pool's champion in a cross-pool trial.
type ReferenceResult struct {
	Tick    uint64 `json:"tick"`
	PoolID  int    `json:"pool_id"`
	UID     uint64 `json:"uid"`
	Fitness uint64 `json:"fitness"`
}
