package domain

import (
	"fmt"
	"strings"
)

// SwapStatus represents the different statuses that a swap can assume.
type SwapStatus int

const (
	SwapStatusUndefined SwapStatus = iota
	SwapStatusProposed
	SwapStatusAccepted
	SwapStatusSettled
	SwapStatusCancelled
	SwapStatusExpired
)

var swapStatusNames = map[SwapStatus]string{
	SwapStatusUndefined: "undefined",
	SwapStatusProposed:  "proposed",
	SwapStatusAccepted:  "accepted",
	SwapStatusSettled:   "settled",
	SwapStatusCancelled: "cancelled",
	SwapStatusExpired:   "expired",
}

func (s SwapStatus) String() string {
	if name, ok := swapStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// IsTerminal returns whether no further transition is possible.
func (s SwapStatus) IsTerminal() bool {
	return s == SwapStatusSettled ||
		s == SwapStatusCancelled ||
		s == SwapStatusExpired
}

// IsActive returns whether the swap may still hold custody of assets.
func (s SwapStatus) IsActive() bool {
	return s == SwapStatusProposed || s == SwapStatusAccepted
}

// ParseSwapStatus returns the status matching the given name, case
// insensitive.
func ParseSwapStatus(name string) (SwapStatus, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for status, n := range swapStatusNames {
		if status != SwapStatusUndefined && n == name {
			return status, nil
		}
	}
	return SwapStatusUndefined, fmt.Errorf("unknown swap status %q", name)
}
