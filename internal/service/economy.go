package service

import (
	"arcade_webapp/internal/domain"

	"github.com/shopspring/decimal"
)

// TransferFee is the sender surcharge shown to clients
const TransferFee = "1%"

var (
	feeMultiplier = decimal.RequireFromString("1.01")
	// 0.01 cash buys 1000 credits
	creditPrice = decimal.RequireFromString("0.00001")
)

// TransferCost is what the sender pays to move a: integer quantities are
// rounded up after the fee, cash is charged exactly.
func TransferCost(a domain.Amounts) domain.Amounts {
	return domain.Amounts{
		Credits: withFee(a.Credits),
		Plays:   withFee(a.Plays),
		Cash:    a.Cash.Mul(feeMultiplier),
	}
}

func withFee(q int64) int64 {
	return decimal.NewFromInt(q).Mul(feeMultiplier).Ceil().IntPart()
}

// PurchaseCost is the cash price of the given number of credits
func PurchaseCost(credits int64) decimal.Decimal {
	return decimal.NewFromInt(credits).Mul(creditPrice)
}

func validAmounts(a domain.Amounts) bool {
	return a.Credits >= 0 && a.Plays >= 0 && !a.Cash.IsNegative()
}
