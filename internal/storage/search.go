package storage

import (
	"fmt"
	"strings"

	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

// Operator is a comparison operator usable in a filter predicate.
type Operator string

const (
	OpEqual Operator = "="
	OpILike Operator = "ILIKE"
	OpGTE   Operator = ">="
	OpLTE   Operator = "<="
)

// Predicate is one tagged filter clause. When it names several columns the
// clause matches if any column satisfies the operator (a single placeholder
// is shared). Values are always bound as query parameters, never
// interpolated into the SQL text.
type Predicate struct {
	Columns  []string
	Operator Operator
	Value    interface{}
}

// FilterSet accumulates predicates that compile to an AND-combined,
// parameterized WHERE clause.
type FilterSet struct {
	predicates []Predicate
}

// Add appends a single-column predicate.
func (f *FilterSet) Add(column string, op Operator, value interface{}) {
	f.predicates = append(f.predicates, Predicate{Columns: []string{column}, Operator: op, Value: value})
}

// AddAny appends a predicate matching when any of the columns satisfies op.
func (f *FilterSet) AddAny(columns []string, op Operator, value interface{}) {
	f.predicates = append(f.predicates, Predicate{Columns: columns, Operator: op, Value: value})
}

// Empty reports whether no predicates were added.
func (f *FilterSet) Empty() bool {
	return len(f.predicates) == 0
}

// Compile renders the WHERE clause (without the WHERE keyword) with
// placeholders starting at startIndex, and returns the bound arguments in
// placeholder order. An empty FilterSet compiles to an empty string.
func (f *FilterSet) Compile(startIndex int) (string, []interface{}) {
	if len(f.predicates) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(f.predicates))
	args := make([]interface{}, 0, len(f.predicates))

	idx := startIndex
	for _, p := range f.predicates {
		if len(p.Columns) == 1 {
			parts = append(parts, fmt.Sprintf("%s %s $%d", p.Columns[0], p.Operator, idx))
		} else {
			alts := make([]string, len(p.Columns))
			for i, col := range p.Columns {
				alts[i] = fmt.Sprintf("%s %s $%d", col, p.Operator, idx)
			}
			parts = append(parts, "("+strings.Join(alts, " OR ")+")")
		}
		args = append(args, p.Value)
		idx++
	}

	return strings.Join(parts, " AND "), args
}

// SearchParams are the validated inputs to a product search.
type SearchParams struct {
	Query    string
	Category string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
	Limit    int
	Sort     types.SortKey
}

// Filters builds the predicate list for the search query. Column references
// assume the aliases of the search SQL: p (products), c (categories), lp
// (latest available price per product).
func (p *SearchParams) Filters() *FilterSet {
	f := &FilterSet{}

	if p.Query != "" {
		f.AddAny([]string{"p.name", "p.model_number", "p.brand", "p.description"},
			OpILike, "%"+p.Query+"%")
	}
	if p.Category != "" {
		f.Add("c.slug", OpEqual, p.Category)
	}
	if p.Brand != "" {
		f.Add("p.brand", OpILike, p.Brand)
	}
	if p.MinPrice != nil {
		f.Add("lp.price", OpGTE, *p.MinPrice)
	}
	if p.MaxPrice != nil {
		f.Add("lp.price", OpLTE, *p.MaxPrice)
	}

	return f
}

// OrderBy maps the sort key to its ORDER BY expression. Products without an
// available price sort last for both price directions.
func (p *SearchParams) OrderBy() string {
	switch p.Sort {
	case types.SortPriceLow:
		return "lp.price ASC NULLS LAST, p.name ASC"
	case types.SortPriceHigh:
		return "lp.price DESC NULLS LAST, p.name ASC"
	case types.SortNewest:
		return "p.created_at DESC"
	default:
		return "p.name ASC"
	}
}

// Offset returns the row offset for the 1-indexed page.
func (p *SearchParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
