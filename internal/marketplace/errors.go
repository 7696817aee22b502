package marketplace

import "errors"

var (
	// ErrDecode marks a marketplace log whose payload does not match the
	// event shape its topic promises. The log is skipped, never the whole
	// transaction.
	ErrDecode = errors.New("marketplace log does not match expected event shape")

	// ErrUnknownCurrency marks a fill settled in a currency missing from the
	// currency table.
	ErrUnknownCurrency = errors.New("settlement currency not in currency table")
)
