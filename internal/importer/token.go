package importer

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenGenerator produces opaque product codes. Injectable so tests can
// supply deterministic tokens; the codes are synthetic values, never
// derived from any input field.
type TokenGenerator interface {
	Next() string
}

type skuGenerator struct {
	prefix string
}

// NewSKUGenerator returns the production token generator. Tokens look like
// SLI-K3F2-9A1C: a timestamp fragment plus random hex, unique enough for
// catalog codes at import scale.
func NewSKUGenerator() TokenGenerator {
	return &skuGenerator{prefix: "SLI"}
}

func (g *skuGenerator) Next() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	if len(ts) > 4 {
		ts = ts[len(ts)-4:]
	}
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return g.prefix + "-" + ts + "-" + random
}
