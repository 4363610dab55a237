package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
)

// tolerance is the rounding slack for the zero-sum and split-sum checks:
// one minor unit of the base currency.
var tolerance = decimal.New(1, -2)

// pairKey identifies an unordered pair of distinct users.
type pairKey struct {
	low, high string
}

func newPairKey(a, b string) pairKey {
	if a < b {
		return pairKey{low: a, high: b}
	}
	return pairKey{low: b, high: a}
}

// nettingGraph holds the net balance per unordered user pair. The sign is
// relative to the pair's low user: positive means low owes high. The graph
// is built once per snapshot and never mutated afterwards; any user's
// summary is a cheap partition over it.
type nettingGraph struct {
	nets map[pairKey]decimal.Decimal
}

// buildGraph aggregates directed debt edges into per-pair nets. Netting is
// strictly pairwise: A->B->C->A cycles are left standing, by contract.
func buildGraph(edges []domain.DebtEdge) *nettingGraph {
	g := &nettingGraph{nets: make(map[pairKey]decimal.Decimal)}
	for _, edge := range edges {
		if edge.FromUserID == edge.ToUserID {
			continue
		}
		key := newPairKey(edge.FromUserID, edge.ToUserID)
		net := g.nets[key]
		if edge.FromUserID == key.low {
			net = net.Add(edge.AmountInBase)
		} else {
			net = net.Sub(edge.AmountInBase)
		}
		g.nets[key] = net
	}
	return g
}

// participants returns every user appearing in the graph, sorted.
func (g *nettingGraph) participants() []string {
	seen := make(map[string]bool)
	for key := range g.nets {
		seen[key.low] = true
		seen[key.high] = true
	}
	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// summaryFor partitions the graph for one user. Amounts are rounded to two
// places at this edge; pairs whose rounded net is zero are omitted. Totals
// are computed from the rounded rows so they always equal the sum of the
// breakdown the caller sees.
func (g *nettingGraph) summaryFor(userID string) (owedToYou, owed decimal.Decimal, balances []domain.CounterpartyBalance) {
	owedToYou = decimal.Zero
	owed = decimal.Zero

	for key, net := range g.nets {
		var counterparty string
		var userOwes decimal.Decimal

		switch userID {
		case key.low:
			counterparty = key.high
			userOwes = net
		case key.high:
			counterparty = key.low
			userOwes = net.Neg()
		default:
			continue
		}

		rounded := userOwes.Round(2)
		if rounded.IsZero() {
			continue
		}

		if rounded.IsPositive() {
			owed = owed.Add(rounded)
			balances = append(balances, domain.CounterpartyBalance{
				CounterpartyID: counterparty,
				NetAmount:      rounded,
				Direction:      domain.DirectionYouOwe,
			})
		} else {
			owedToYou = owedToYou.Add(rounded.Neg())
			balances = append(balances, domain.CounterpartyBalance{
				CounterpartyID: counterparty,
				NetAmount:      rounded.Neg(),
				Direction:      domain.DirectionOwesYou,
			})
		}
	}

	sort.Slice(balances, func(i, j int) bool {
		return balances[i].CounterpartyID < balances[j].CounterpartyID
	})
	return owedToYou, owed, balances
}
