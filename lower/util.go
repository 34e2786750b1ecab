package lower

import "strconv"

func itoa(n int) string { return strconv.Itoa(n) }

func errOverflow(v int64, bits int, signed bool) error {
	kind := "unsigned"
	if signed {
		kind = "signed"
	}
	return &overflowError{v, bits, kind}
}

type overflowError struct {
	v    int64
	bits int
	kind string
}

func (e *overflowError) Error() string {
	return "immediate " + strconv.FormatInt(e.v, 10) + " overflows " + strconv.Itoa(e.bits) + "-bit " + e.kind + " field"
}
