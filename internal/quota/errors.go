package quota

import "errors"

// ErrLimitReached indicates the account exhausted its token allowance.
var ErrLimitReached = errors.New("limit reached")
