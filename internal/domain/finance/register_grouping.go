package finance

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentGroup is one bucket of register lines that settle through a
// single payment. Lines keep their selection order inside the group and
// groups keep the order their first line appeared in.
type PaymentGroup struct {
	Key   PaymentGroupKey
	Lines []*RegisterLine
}

// TotalPayment sums the payment amounts of the group's lines
func (g *PaymentGroup) TotalPayment() decimal.Decimal {
	total := decimal.Zero
	for _, l := range g.Lines {
		total = total.Add(l.PaymentAmount)
	}
	return total
}

// TotalBalance sums the unpaid balances of the group's lines
func (g *PaymentGroup) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, l := range g.Lines {
		total = total.Add(l.Balance)
	}
	return total
}

// Communication joins the line references with a comma, in line order
func (g *PaymentGroup) Communication() string {
	refs := make([]string, 0, len(g.Lines))
	for _, l := range g.Lines {
		refs = append(refs, l.Reference)
	}
	return strings.Join(refs, ", ")
}

// PaymentType returns the direction of the payment the group emits.
// Customer groups collect money, supplier groups send it.
func (g *PaymentGroup) PaymentType() PaymentType {
	if g.Key.Role == PartnerRoleCustomer {
		return PaymentTypeInbound
	}
	return PaymentTypeOutbound
}

// GroupLines partitions the retained lines of a registration into payment
// groups keyed by commercial partner, currency, bank account and partner
// role. Order is deterministic: groups appear in the order of their first
// line, never sorted by key. With groupByKey false every line becomes a
// singleton group and the key is only informational.
func GroupLines(lines []*RegisterLine, groupByKey bool) []*PaymentGroup {
	groups := make([]*PaymentGroup, 0)
	if !groupByKey {
		for _, l := range lines {
			groups = append(groups, &PaymentGroup{Key: l.GroupKey(), Lines: []*RegisterLine{l}})
		}
		return groups
	}
	index := make(map[groupKeyValue]*PaymentGroup)
	for _, l := range lines {
		key := l.GroupKey()
		g, ok := index[key.value()]
		if !ok {
			g = &PaymentGroup{Key: key}
			index[key.value()] = g
			groups = append(groups, g)
		}
		g.Lines = append(g.Lines, l)
	}
	return groups
}

// JoinReferences builds the registration-wide communication string from
// the retained lines, comma separated in selection order
func JoinReferences(lines []*RegisterLine) string {
	refs := make([]string, 0, len(lines))
	for _, l := range lines {
		refs = append(refs, l.Reference)
	}
	return strings.Join(refs, ", ")
}
