package numbergen

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPrefix  = "OS"
	DefaultPadding = 4
)

// Sequencer allocates the next per-day counter value. The Postgres implementation
// runs inside the create transaction.
type Sequencer interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}

// Generator formats order numbers as <prefix><YYYYMMDD><sequence>.
type Generator struct {
	prefix   string
	padding  int
	location *time.Location
}

type option func(*Generator)

// WithPrefix overrides the number prefix.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPrefix(prefix string) option {
	return func(g *Generator) {
		g.prefix = strings.TrimSpace(prefix)
	}
}

// WithPadding sets the minimum width of the sequence part.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPadding(padding int) option {
	return func(g *Generator) {
		if padding > 0 {
			g.padding = padding
		}
	}
}

// WithLocation sets the timezone the calendar day is computed in.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocation(loc *time.Location) option {
	return func(g *Generator) {
		if loc != nil {
			g.location = loc
		}
	}
}

// New creates a Generator with the default prefix, padding and UTC.
func New(opts ...option) *Generator {
	g := &Generator{
		prefix:   DefaultPrefix,
		padding:  DefaultPadding,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Day truncates createdAt to the calendar day in the generator's timezone.
func (g *Generator) Day(createdAt time.Time) time.Time {
	local := createdAt.In(g.location)

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.location)
}

// Format renders a number without allocating a sequence value.
func (g *Generator) Format(createdAt time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%0*d", g.prefix, g.Day(createdAt).Format("20060102"), g.padding, seq)
}

// Generate allocates the next sequence value for createdAt's day and formats it.
func (g *Generator) Generate(ctx context.Context, seq Sequencer, createdAt time.Time) (string, error) {
	day := g.Day(createdAt)

	next, err := seq.Next(ctx, day)
	if err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}
	if next <= 0 {
		return "", fmt.Errorf("failed to allocate order number: sequence returned %d", next)
	}

	return g.Format(createdAt, next), nil
}
