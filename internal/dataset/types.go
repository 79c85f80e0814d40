// Package dataset persists one training record per repair attempt and
// exchanges the accumulated corpus as versioned CSV.
package dataset

import (
	"time"

	"github.com/danielpatrickdp/pageforge/internal/features"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// SchemaVersion is the current CSV exchange format version. Version 1
// carried a boolean is_valid column; version 2 replaced it with the
// strategy that ultimately resolved the build.
const SchemaVersion = 2

// #region record
// Record captures the state of a single repair attempt. ResolvedStrategy
// is backfilled once the build's closed loop terminates: the strategy
// whose attempt was approved, or Unresolved when the build was rejected.
type Record struct {
	ID               int64
	BuildID          string
	Attempt          int
	Theme            string
	Features         features.BuildFeatures
	Strategy         strategy.Strategy
	Approved         bool
	Reason           string
	Overrides        []string
	ResolvedStrategy strategy.Strategy
	CreatedAt        time.Time
}

// Row returns the record's feature vector plus its label, the shape the
// trainer consumes.
func (r Record) Row() (x []float64, label int) {
	return r.Features.Vector(), int(r.ResolvedStrategy)
}
// #endregion record

// #region stats
// Stats summarizes the stored corpus.
type Stats struct {
	Records    int
	Builds     int
	Approved   int
	Unresolved int
	ByStrategy map[strategy.Strategy]int
}
// #endregion stats
