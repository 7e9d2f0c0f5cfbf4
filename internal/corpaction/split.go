// Package corpaction applies corporate actions (stock splits, symbol changes)
// to projected state with exact integer arithmetic.
package corpaction

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
)

var (
	ErrInvalidRatio  = errors.New("invalid split ratio")
	ErrOverflow      = errors.New("split result overflows int64")
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// Ratio is numerator:denominator. 2:1 doubles every balance, 1:10 is a
// reverse split.
type Ratio struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

func (r Ratio) Validate() error {
	if r.Numerator < 1 || r.Denominator < 1 {
		return fmt.Errorf("%w: %d:%d", ErrInvalidRatio, r.Numerator, r.Denominator)
	}
	return nil
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d", r.Numerator, r.Denominator)
}

// ScaleAmount returns floor(amount * num / den).
func ScaleAmount(amount int64, r Ratio) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return scale(big.NewInt(amount), r)
}

func scale(amount *big.Int, r Ratio) (int64, error) {
	v := new(big.Int).Mul(amount, big.NewInt(r.Numerator))
	v.Quo(v, big.NewInt(r.Denominator))
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, v.String())
	}
	return v.Int64(), nil
}

// ApplySplit scales every balance by r. Each balance is floored and the
// shortfall against floor(sum * num / den) goes to the largest pre-split
// holder (ties broken by wallet ascending), so the new total is exact.
// The input map is not modified.
func ApplySplit(balances map[string]int64, r Ratio) (map[string]int64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	wallets := make([]string, 0, len(balances))
	sum := new(big.Int)
	for wallet, balance := range balances {
		if balance < 0 {
			return nil, fmt.Errorf("negative balance for %s: %d", wallet, balance)
		}
		wallets = append(wallets, wallet)
		sum.Add(sum, big.NewInt(balance))
	}
	sort.Strings(wallets)

	out := make(map[string]int64, len(balances))
	var scaledSum int64
	for _, wallet := range wallets {
		balance := balances[wallet]
		scaled, err := scale(big.NewInt(balance), r)
		if err != nil {
			return nil, fmt.Errorf("scale %s: %w", wallet, err)
		}
		out[wallet] = scaled
		scaledSum += scaled
	}

	target, err := scale(sum, r)
	if err != nil {
		return nil, fmt.Errorf("scale total supply: %w", err)
	}
	if remainder := target - scaledSum; remainder > 0 {
		largest := LargestHolder(balances)
		if out[largest] > math.MaxInt64-remainder {
			return nil, ErrOverflow
		}
		out[largest] += remainder
	}
	return out, nil
}

// ScaleClasses splits a holder's post-split balance target across its share
// classes. Each class is floored at pos * num / den and the difference to
// target goes to the largest class, ties to the lowest class id.
func ScaleClasses(classes map[int64]int64, r Ratio, target int64) (map[int64]int64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(classes))
	for class := range classes {
		ids = append(ids, class)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make(map[int64]int64, len(classes))
	var (
		sum     int64
		largest int64
		best    int64 = -1
	)
	for _, class := range ids {
		shares := classes[class]
		if shares < 0 {
			return nil, fmt.Errorf("negative position in class %d: %d", class, shares)
		}
		scaled, err := scale(big.NewInt(shares), r)
		if err != nil {
			return nil, fmt.Errorf("scale class %d: %w", class, err)
		}
		out[class] = scaled
		sum += scaled
		if shares > best {
			largest, best = class, shares
		}
	}
	remainder := target - sum
	if remainder < 0 {
		return nil, fmt.Errorf("class positions %d exceed scaled balance %d", sum, target)
	}
	if remainder > 0 {
		if len(ids) == 0 {
			return nil, fmt.Errorf("balance %d has no class position", target)
		}
		out[largest] += remainder
	}
	return out, nil
}

// LargestHolder returns the wallet with the highest balance, ties broken by
// wallet ascending. Empty when balances is empty.
func LargestHolder(balances map[string]int64) string {
	var (
		best  string
		bestV int64 = -1
	)
	for wallet, balance := range balances {
		if balance > bestV || (balance == bestV && wallet < best) {
			best, bestV = wallet, balance
		}
	}
	return best
}

// ValidateSymbol accepts 1 to 10 characters from [A-Z0-9].
func ValidateSymbol(symbol string) error {
	if len(symbol) < 1 || len(symbol) > 10 {
		return fmt.Errorf("%w: %q must be 1 to 10 characters", ErrInvalidSymbol, symbol)
	}
	for _, c := range symbol {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return fmt.Errorf("%w: %q may only contain A-Z and 0-9", ErrInvalidSymbol, symbol)
		}
	}
	return nil
}
