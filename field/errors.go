package field

import "github.com/pkg/errors"

var errDivByZero = errors.New("field: inverse of zero is undefined")
