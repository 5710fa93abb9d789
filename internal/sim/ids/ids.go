package ids

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator hands out instance ids for placed blocks.
type Generator interface {
	Generate() string
}

type UUID struct{}

func (UUID) Generate() string { return uuid.NewString() }

// Sequential produces prefix_1, prefix_2, ... and is meant for tests and replays.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

func (g *Sequential) Generate() string {
	n := g.counter.Add(1)
	if g.prefix == "" {
		return strconv.FormatUint(n, 10)
	}
	return fmt.Sprintf("%s_%d", g.prefix, n)
}

func ResourceID(typeID string, copyIdx int) string {
	return fmt.Sprintf("res-%s-%d", typeID, copyIdx)
}
