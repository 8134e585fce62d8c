package experiment

import (
	"genepool/internal/evo"
	"genepool/internal/genome"
	"genepool/internal/model"
	"genepool/internal/storage"
)

// MemberRecord converts a pool entry into its persisted form.
func MemberRecord(e evo.Entry) model.MemberRecord {
	rec := model.MemberRecord{
		UID:            uint64(e.UID),
		Rank:           e.Rank,
		NumEvaluations: e.NumEvaluations,
	}
	if e.MaxFitness != nil {
		v := uint64(*e.MaxFitness)
		rec.MaxFitness = &v
	}
	for _, f := range e.LastFitness {
		rec.LastFitness = append(rec.LastFitness, uint64(f))
	}
	if e.Genome != nil {
		rec.Raw = genome.Clone(e.Genome.Raw)
		rec.Frames = len(e.Genome.Frames)
		rec.Fingerprint = genome.Fingerprint(e.Genome.Raw)
	}
	return rec
}

func lineageRecord(poolID int, rec evo.LineageRecord) model.LineageRecord {
	out := model.LineageRecord{
		VersionedRecord: storage.CurrentVersion(),
		PoolID:          poolID,
		UID:             uint64(rec.UID),
		Operation:       rec.Operation,
		Tick:            rec.Tick,
		Fingerprint:     rec.Fingerprint,
	}
	for _, parent := range rec.Parents {
		out.Parents = append(out.Parents, uint64(parent))
	}
	return out
}
