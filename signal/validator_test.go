package signal

import (
	"testing"

	"github.com/driftwood-labs/sigengine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLong(t *testing.T) {
	v := NewValidator(config.Default())

	// Scenario A from spec.md §8.
	p := Proposal{
		Position:            Long,
		PriceTakeProfit:     51000,
		PriceStopLoss:       49000,
		MinuteEstimatedTime: 120,
	}
	require.NoError(t, v.Validate(p, 50000))
}

func TestValidateRejectsWrongOrderingLong(t *testing.T) {
	v := NewValidator(config.Default())
	p := Proposal{
		Position:            Long,
		PriceTakeProfit:     49000, // below priceOpen: invalid
		PriceStopLoss:       51000,
		MinuteEstimatedTime: 60,
	}
	err := v.Validate(p, 50000)
	require.Error(t, err)
	var ise *InvalidSignalError
	assert.ErrorAs(t, err, &ise)
}

func TestValidateRejectsTightTakeProfit(t *testing.T) {
	v := NewValidator(config.Default())
	p := Proposal{
		Position:            Long,
		PriceTakeProfit:     50010, // 0.02% away, below minimum
		PriceStopLoss:       49000,
		MinuteEstimatedTime: 60,
	}
	require.Error(t, v.Validate(p, 50000))
}

func TestValidateLifetimeBoundary(t *testing.T) {
	cfg := config.Default()
	v := NewValidator(cfg)

	within := Proposal{
		Position: Long, PriceTakeProfit: 51000, PriceStopLoss: 49000,
		MinuteEstimatedTime: cfg.MaxSignalLifetimeMinutes,
	}
	assert.NoError(t, v.Validate(within, 50000))

	over := within
	over.MinuteEstimatedTime = cfg.MaxSignalLifetimeMinutes + 1
	assert.Error(t, v.Validate(over, 50000))
}

func TestValidateShort(t *testing.T) {
	v := NewValidator(config.Default())
	p := Proposal{
		Position:            Short,
		PriceOpen:           50500,
		PriceTakeProfit:     49000,
		PriceStopLoss:       51500,
		MinuteEstimatedTime: 120,
	}
	require.NoError(t, v.Validate(p, 50500))
}

func TestValidateNonPositivePrices(t *testing.T) {
	v := NewValidator(config.Default())
	p := Proposal{Position: Long, PriceTakeProfit: 0, PriceStopLoss: 49000, MinuteEstimatedTime: 60}
	require.Error(t, v.Validate(p, 50000))
}
