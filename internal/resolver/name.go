package resolver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

const (
	// suffixLen is the number of hex characters kept from the random bytes.
	// 28 bits leaves room for collisions; callers redraw on conflict.
	suffixLen   = 7
	randomBytes = 4
	dateLayout  = "20060102"
	nameExt     = ".md"
)

// NameGenerator produces default output file names of the form
// YYYYMMDD_xxxxxxx.md using the local calendar date.
type NameGenerator struct {
	now  func() time.Time
	rand io.Reader
}

func NewNameGenerator(now func() time.Time, r io.Reader) *NameGenerator {
	if now == nil {
		now = time.Now
	}
	if r == nil {
		r = rand.Reader
	}
	return &NameGenerator{now: now, rand: r}
}

func (g *NameGenerator) Next() (string, error) {
	b := make([]byte, randomBytes)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	suffix := hex.EncodeToString(b)[:suffixLen]

	return g.now().Local().Format(dateLayout) + "_" + suffix + nameExt, nil
}
