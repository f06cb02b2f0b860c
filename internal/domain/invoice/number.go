package invoice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/billfold/billfold/internal/logger"
	"github.com/billfold/billfold/internal/types"
)

// NumberQuery is the read capability the generator needs: given a prefix,
// return the lexicographically greatest existing invoice number with that
// prefix, or the empty string when there is none.
type NumberQuery interface {
	LatestInvoiceNumber(ctx context.Context, prefix string) (string, error)
}

// NumberGenerator produces sequential invoice numbers in the format
// INV-YYYYMM-NNNN. The sequence restarts at 0001 each calendar month.
//
// The generator itself takes no locks: two concurrent calls in the same
// month can observe the same latest number and produce a duplicate. The
// unique constraint on invoice_number catches that at insert time and the
// caller retries generation.
type NumberGenerator struct {
	query NumberQuery
	clock types.Clock
	log   *logger.Logger
}

// NewNumberGenerator creates a new invoice number generator
func NewNumberGenerator(query NumberQuery, clock types.Clock, log *logger.Logger) *NumberGenerator {
	return &NumberGenerator{
		query: query,
		clock: clock,
		log:   log,
	}
}

// Generate returns the next invoice number for the current calendar month
func (g *NumberGenerator) Generate(ctx context.Context) (string, error) {
	yearMonth := g.clock.Now().Format("200601") // YYYYMM
	prefix := fmt.Sprintf("INV-%s-", yearMonth)

	last, err := g.query.LatestInvoiceNumber(ctx, prefix)
	if err != nil {
		return "", err
	}

	nextNumber := 1
	if last != "" {
		suffix := strings.TrimPrefix(last, prefix)
		if lastNumber, err := strconv.Atoi(suffix); err == nil {
			nextNumber = lastNumber + 1
		} else {
			// Unparseable suffix restarts the sequence rather than failing
			g.log.Warnw("unparseable invoice number suffix, restarting sequence",
				"invoice_number", last,
				"year_month", yearMonth)
		}
	}

	return fmt.Sprintf("%s%04d", prefix, nextNumber), nil
}
