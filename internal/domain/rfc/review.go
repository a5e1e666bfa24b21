package rfc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
)

// Review order keys. A leading "-" reverses the order.
const (
	OrderName      = "name"
	OrderSubmitted = "submitted"
	OrderStatus    = "status"
	OrderPayRange  = "pay_range"
)

type reviewOrder struct {
	key  string
	desc bool
}

func parseOrder(s string) (reviewOrder, error) {
	s = strings.TrimSpace(s)
	o := reviewOrder{}
	if strings.HasPrefix(s, "-") {
		o.desc = true
		s = s[1:]
	}
	switch s {
	case "":
		if o.desc {
			return o, invalidOrder()
		}
	case OrderName, OrderSubmitted, OrderStatus, OrderPayRange:
		o.key = s
	default:
		return o, invalidOrder()
	}
	return o, nil
}

func invalidOrder() error {
	return apperr.Validation("invalid order", map[string]string{
		"order_by": "must be one of name, submitted, status, pay_range (prefix - for descending)",
	})
}

// sort orders items in place. With no key the order is random.
func (o reviewOrder) sort(items []*Proposal) {
	if o.key == "" {
		lo.Shuffle(items)
		return
	}
	less, missing := o.less(), o.missing()
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		// Proposals without a value for the key stay last in either direction.
		if ma, mb := missing(a), missing(b); ma != mb {
			return mb
		} else if !ma {
			if o.desc {
				a, b = b, a
			}
			if less(a, b) {
				return true
			}
			if less(b, a) {
				return false
			}
		}
		return items[i].ID.String() < items[j].ID.String()
	})
}

func (o reviewOrder) missing() func(p *Proposal) bool {
	switch o.key {
	case OrderSubmitted:
		return func(p *Proposal) bool { return p.Submitted == nil }
	case OrderPayRange:
		return func(p *Proposal) bool {
			_, ok := payFloor(p.PayRange)
			return !ok
		}
	default:
		return func(*Proposal) bool { return false }
	}
}

func (o reviewOrder) less() func(a, b *Proposal) bool {
	switch o.key {
	case OrderName:
		return func(a, b *Proposal) bool {
			return strings.ToLower(a.ResponderName) < strings.ToLower(b.ResponderName)
		}
	case OrderSubmitted:
		return func(a, b *Proposal) bool {
			return a.Submitted.Before(*b.Submitted)
		}
	case OrderStatus:
		return func(a, b *Proposal) bool {
			return statusRank(a.Status) < statusRank(b.Status)
		}
	default:
		return func(a, b *Proposal) bool {
			pa, _ := payFloor(a.PayRange)
			pb, _ := payFloor(b.PayRange)
			if pa != pb {
				return pa < pb
			}
			return a.PayRange < b.PayRange
		}
	}
}

// statusRank puts accepted proposals ahead of undecided ones.
func statusRank(s ProposalStatus) int {
	switch s {
	case ProposalAccepted:
		return 0
	case ProposalUnknown:
		return 1
	default:
		return 2
	}
}

var payNumber = regexp.MustCompile(`\d+(\.\d+)?`)

// payFloor is the first number in a free-text pay range.
func payFloor(s string) (float64, bool) {
	m := payNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
