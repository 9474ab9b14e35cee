package money

// Amount is a monetary value in minor units (cents).
type Amount = int64

// ApplyBps scales v by a basis-point rate, rounding half to even.
func ApplyBps(v Amount, bps int32) Amount {
	if v <= 0 || bps <= 0 {
		return 0
	}
	return DivRound(v*Amount(bps), 10000)
}

// DivRound divides n by d rounding half to even. d must be positive.
func DivRound(n, d Amount) Amount {
	if d <= 0 {
		return 0
	}
	neg := n < 0
	if neg {
		n = -n
	}
	q := n / d
	r := n % d
	switch {
	case 2*r > d:
		q++
	case 2*r == d && q%2 != 0:
		q++
	}
	if neg {
		return -q
	}
	return q
}

// Allocate splits total across weights proportionally using the
// largest-remainder method so the parts always sum to total exactly.
// Zero or negative weights receive nothing.
func Allocate(total Amount, weights []Amount) []Amount {
	parts := make([]Amount, len(weights))
	if total <= 0 || len(weights) == 0 {
		return parts
	}
	var sum Amount
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum <= 0 {
		return parts
	}
	type rem struct {
		idx int
		val Amount
	}
	var allocated Amount
	remainders := make([]rem, 0, len(weights))
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		share := total * w
		parts[i] = share / sum
		allocated += parts[i]
		remainders = append(remainders, rem{idx: i, val: share % sum})
	}
	// Hand leftover minor units to the largest remainders first; ties go to
	// the earlier line so allocation is deterministic for a given cart order.
	left := total - allocated
	for left > 0 {
		best := -1
		for j, r := range remainders {
			if best < 0 || r.val > remainders[best].val {
				best = j
			}
		}
		if best < 0 {
			break
		}
		parts[remainders[best].idx]++
		remainders[best].val = -1
		left--
	}
	return parts
}
