package service

import (
	"testing"

	"arcade_webapp/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestTransferCostExamples(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{0, 0},
		{1, 2},
		{50, 51},
		{99, 100},
		{100, 101},
		{101, 103},
		{1000, 1010},
	}
	for _, tc := range cases {
		got := TransferCost(domain.Amounts{Credits: tc.in, Plays: tc.in})
		assert.Equal(t, tc.want, got.Credits, "credits %d", tc.in)
		assert.Equal(t, tc.want, got.Plays, "plays %d", tc.in)
	}

	cash := TransferCost(domain.Amounts{Cash: decimal.RequireFromString("2.5")}).Cash
	assert.True(t, cash.Equal(decimal.RequireFromString("2.525")), cash.String())
}

func TestTransferCostProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := rapid.Int64Range(0, 1_000_000_000).Draw(t, "q")
		cents := rapid.Int64Range(0, 1_000_000_00).Draw(t, "cents")
		cash := decimal.New(cents, -2)

		got := TransferCost(domain.Amounts{Credits: q, Plays: q, Cash: cash})

		// ceil(q * 101 / 100) in integer arithmetic
		want := q + (q+99)/100
		if got.Credits != want || got.Plays != want {
			t.Fatalf("TransferCost(%d) = %d/%d, want %d", q, got.Credits, got.Plays, want)
		}
		if got.Credits < q {
			t.Fatalf("fee made the charge smaller than the amount")
		}
		if !got.Cash.Equal(cash.Mul(decimal.RequireFromString("1.01"))) {
			t.Fatalf("cash charge %s for %s", got.Cash, cash)
		}
	})
}

func TestPurchaseCost(t *testing.T) {
	assert.True(t, PurchaseCost(1000).Equal(decimal.RequireFromString("0.01")))
	assert.True(t, PurchaseCost(1).Equal(decimal.RequireFromString("0.00001")))

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Int64Range(1, 1_000_000_000).Draw(t, "credits")
		back := PurchaseCost(n).Div(decimal.RequireFromString("0.00001"))
		if !back.Equal(decimal.NewFromInt(n)) {
			t.Fatalf("PurchaseCost(%d) does not round-trip: %s", n, back)
		}
	})
}
