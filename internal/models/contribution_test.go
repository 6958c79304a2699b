package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contrib(who, amount string, withdrawal bool) Contribution {
	return Contribution{
		FundID:      "chimera",
		Contributor: who,
		Amount:      decimal.RequireFromString(amount),
		Withdrawal:  withdrawal,
		Timestamp:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestContribution_Validate(t *testing.T) {
	valid := contrib("alex", "500.00", false)
	require.NoError(t, valid.Validate())

	noName := valid
	noName.Contributor = ""
	assert.Error(t, noName.Validate())

	zero := valid
	zero.Amount = decimal.Zero
	assert.Error(t, zero.Validate())

	negative := valid
	negative.Amount = decimal.RequireFromString("-5")
	assert.Error(t, negative.Validate())

	precise := valid
	precise.Amount = decimal.RequireFromString("10.995")
	assert.Error(t, precise.Validate())

	noTime := valid
	noTime.Timestamp = time.Time{}
	assert.Error(t, noTime.Validate())
}

func TestContribution_Signed(t *testing.T) {
	in := contrib("alex", "500.00", false)
	assert.Equal(t, "500.00", in.Signed().StringFixed(2))

	out := contrib("alex", "200.00", true)
	assert.Equal(t, "-200.00", out.Signed().StringFixed(2))
}

func TestNetContributions(t *testing.T) {
	history := []Contribution{
		contrib("alex", "500.00", false),
		contrib("blair", "300.00", false),
		contrib("alex", "100.00", true),
		contrib("casey", "50.00", false),
		contrib("casey", "75.00", true),
	}

	net := NetContributions(history)
	require.Len(t, net, 3)
	assert.Equal(t, "400.00", net["alex"].StringFixed(2))
	assert.Equal(t, "300.00", net["blair"].StringFixed(2))
	assert.Equal(t, "-25.00", net["casey"].StringFixed(2), "net can go negative; exclusion is the caller's rule")
}
