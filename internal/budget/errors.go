package budget

import "fmt"

// ErrExceeded is returned when a reservation would surpass the daily limit.
type ErrExceeded struct {
	Requested int
	Used      int
	Limit     int
}

func (e ErrExceeded) Error() string {
	return fmt.Sprintf("daily question limit reached: requested=%d used=%d limit=%d", e.Requested, e.Used, e.Limit)
}
