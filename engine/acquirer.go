package engine

import (
	"context"

	"github.com/sentinelops/lewsboard/model"
)

// Acquirer abstracts a data source that can produce one payload per cycle.
// The live gateway and the replay player both satisfy it.
type Acquirer interface {
	Acquire(ctx context.Context) (*model.Payload, model.DataPath, error)
}
