package domain

import "github.com/shopspring/decimal"

func init() {
	// the mini app frontend expects plain JSON numbers for balances
	decimal.MarshalJSONWithoutQuotes = true
}
