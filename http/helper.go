package http

import "errors"

var (
	errInvalidNumber = errors.New("invalid number")
	errNumberRange   = errors.New("number out of range")
)

// atoi parses a non-negative decimal no larger than max, without allocating.
func atoi(b []byte, max int) (int, error) {
	if len(b) == 0 {
		return 0, errInvalidNumber
	}

	var n int
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, errInvalidNumber
		}
		n = n*10 + int(c-'0')
		if n > max {
			return 0, errNumberRange
		}
	}
	return n, nil
}
