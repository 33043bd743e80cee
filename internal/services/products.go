package services

import (
	"sort"

	"buestanflow/internal/core"
)

// MarginPrecision is the number of decimal places of a margin computed from
// revenue.
const MarginPrecision = 2

// Rank orders product lines by descending profit, ties by ascending name,
// and flags the profitable ones. Margin is carried through unless the line
// has revenue, in which case it is profit / revenue * 100.
func Rank(products []core.ProductLine) ([]core.RankedProduct, error) {
	seen := make(map[string]struct{}, len(products))
	ranked := make([]core.RankedProduct, 0, len(products))
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[p.Name]; dup {
			return nil, &core.ValidationError{Entity: "product", ID: p.Name, Field: "name", Err: core.ErrDuplicateName}
		}
		seen[p.Name] = struct{}{}

		if p.Revenue != nil {
			// Validate guarantees a positive revenue.
			p.Margin, _ = core.Percent(p.Profit, *p.Revenue, MarginPrecision)
		}
		ranked = append(ranked, core.RankedProduct{ProductLine: p, Profitable: p.IsProfitable()})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Profit.Cents != b.Profit.Cents {
			return a.Profit.Cents > b.Profit.Cents
		}
		return a.Name < b.Name
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}
