package detector

import (
	"testing"

	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(hash, from, to string, avgItemPrice float64, floorPriceDiff string, timestamp int64) marketplace.TransactionRecord {
	return marketplace.TransactionRecord{
		InteractedMarket: "opensea",
		TransactionHash:  hash,
		FromAddr:         from,
		ToAddr:           to,
		Initiator:        to,
		TotalPrice:       avgItemPrice,
		AvgItemPrice:     avgItemPrice,
		ContractAddress:  "0x1111111111111111111111111111111111111111",
		FloorPrice:       1.0,
		Currency:         "ETH",
		Timestamp:        timestamp,
		FloorPriceDiff:   floorPriceDiff,
		Tokens: map[string]marketplace.TokenInfo{
			"123": {
				Name: "Test Collection",
				Price: marketplace.TokenValue{
					Value:    avgItemPrice,
					Currency: marketplace.PriceCurrency{Name: "ETH", Decimals: 18},
				},
			},
		},
	}
}

const (
	victim   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	attacker = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	buyer    = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func defaultParams() Params {
	return Params{
		Chain:               marketplace.ChainEthereum,
		MinPhishingUsdValue: 50,
		FloorPriceUSD:       1800,
	}
}

func TestClassifyHistory(t *testing.T) {
	current := record("0x2", attacker, buyer, 1.05, "+5.00%", 1700003600)
	prior := record("0x1", victim, attacker, 0.01, "-99.00%", 1700000000)
	unrelated := record("0x1", victim, buyer, 0.01, "-99.00%", 1700000000)

	assert.Equal(t, NoHistory, ClassifyHistory(nil))
	assert.Equal(t, NoHistory, ClassifyHistory([]marketplace.TransactionRecord{current}))
	assert.Equal(t, ChainedPair, ClassifyHistory([]marketplace.TransactionRecord{current, prior}))
	assert.Equal(t, SinglePrior, ClassifyHistory([]marketplace.TransactionRecord{current, unrelated}))
}

func TestEvaluateStolenResale(t *testing.T) {
	// phishing sale at -99% of floor, flipped near floor an hour later
	current := record("0x2", attacker, buyer, 1.05, "+5.00%", 1700003600)
	prior := record("0x1", victim, attacker, 0.01, "-99.00%", 1700000000)

	findings := Evaluate(current, []marketplace.TransactionRecord{current, prior}, defaultParams())
	require.Len(t, findings, 1)
	f := findings[0]

	assert.Equal(t, AlertStolenNftSale, f.AlertID)
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.Equal(t, TypeExploit, f.Type)
	assert.Equal(t, "0x1", f.Metadata["lastTxn"])
	assert.Contains(t, f.Addresses, victim)
	assert.Contains(t, f.Addresses, attacker)

	labelNames := map[string]string{}
	for _, l := range f.Labels {
		labelNames[l.Name] = l.Entity
	}
	assert.Equal(t, victim, labelNames["nft-phishing-victim"])
	assert.Equal(t, attacker, labelNames["nft-phishing-attacker"])
	assert.Equal(t, "0x1", labelNames["nft-phishing-attack-hash"])
	assert.Contains(t, labelNames, "stolen-nft")
}

func TestEvaluateRegularResale(t *testing.T) {
	// bought slightly below floor, resold slightly above: a normal flip
	current := record("0x2", attacker, buyer, 1.05, "+5.00%", 1700003600)
	prior := record("0x1", victim, attacker, 0.95, "-5.00%", 1700000000)

	findings := Evaluate(current, []marketplace.TransactionRecord{current, prior}, defaultParams())
	require.Len(t, findings, 1)
	assert.Equal(t, AlertIndexedNftSale, findings[0].AlertID)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
	assert.Equal(t, TypeInfo, findings[0].Type)
}

func TestEvaluateStolenResaleBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		currentDiff string
		priorDiff   string
		wantStolen  bool
	}{
		{"prior exactly -98 triggers", "+5.00%", "-98.00%", true},
		{"prior above -98 does not", "+5.00%", "-97.99%", false},
		{"recovery delta exactly 80 does not", "-18.00%", "-98.00%", false},
		{"recovery delta above 80 does", "-17.00%", "-98.00%", true},
		{"current diff exactly zero does not", "+0.00%", "-98.00%", true}, // delta 98 > 80
		{"deep discount resold deep again", "-97.00%", "-99.00%", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := record("0x2", attacker, buyer, 1.0, tt.currentDiff, 1700003600)
			prior := record("0x1", victim, attacker, 0.01, tt.priorDiff, 1700000000)
			findings := Evaluate(current, []marketplace.TransactionRecord{current, prior}, defaultParams())
			require.Len(t, findings, 1)
			if tt.wantStolen {
				assert.Equal(t, AlertStolenNftSale, findings[0].AlertID)
			} else {
				assert.Equal(t, AlertIndexedNftSale, findings[0].AlertID)
			}
		})
	}
}

func TestEvaluateSinglePriorIsSilent(t *testing.T) {
	current := record("0x2", attacker, buyer, 1.05, "+5.00%", 1700003600)
	unrelated := record("0x1", victim, buyer, 0.01, "-99.00%", 1700000000)

	findings := Evaluate(current, []marketplace.TransactionRecord{current, unrelated}, defaultParams())
	assert.Empty(t, findings)
}

func TestEvaluatePhishingSale(t *testing.T) {
	current := record("0x1", victim, attacker, 0.01, "-99.00%", 1700000000)

	findings := Evaluate(current, []marketplace.TransactionRecord{current}, defaultParams())
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, AlertNftPhishingSale, f.AlertID)
	assert.Equal(t, SeverityMedium, f.Severity)
	assert.Equal(t, TypeSuspicious, f.Type)
	assert.Equal(t, "123", f.Metadata["tokenKey"])

	labelNames := map[string]bool{}
	for _, l := range f.Labels {
		labelNames[l.Name] = true
	}
	assert.True(t, labelNames["nft-phishing-victim"])
	assert.True(t, labelNames["nft-phishing-attacker"])
}

func TestEvaluateLowValuePhishingSale(t *testing.T) {
	current := record("0x1", victim, attacker, 0.01, "-99.00%", 1700000000)
	p := defaultParams()
	p.FloorPriceUSD = 20 // below the USD threshold

	findings := Evaluate(current, []marketplace.TransactionRecord{current}, p)
	require.Len(t, findings, 1)
	assert.Equal(t, AlertNftLowValuePhishingSale, findings[0].AlertID)
	assert.Equal(t, SeverityLow, findings[0].Severity)
}

func TestEvaluatePhishingSuppressedForZeroErc20(t *testing.T) {
	current := record("0x1", victim, attacker, 0, "-100.00%", 1700000000)
	p := defaultParams()
	p.IsZeroErc20 = true

	findings := Evaluate(current, []marketplace.TransactionRecord{current}, p)
	require.Len(t, findings, 1)
	assert.Equal(t, AlertNftSaleErc20Unknown, findings[0].AlertID)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
}

func TestEvaluateAboveFloorSale(t *testing.T) {
	current := record("0x1", victim, buyer, 1.5, "+50.00%", 1700000000)

	findings := Evaluate(current, []marketplace.TransactionRecord{current}, defaultParams())
	require.Len(t, findings, 1)
	assert.Equal(t, AlertNftSoldAboveFloor, findings[0].AlertID)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
}

func TestEvaluateRegularSale(t *testing.T) {
	current := record("0x1", victim, buyer, 0.95, "-5.00%", 1700000000)

	findings := Evaluate(current, []marketplace.TransactionRecord{current}, defaultParams())
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, AlertNftSale, f.AlertID)
	assert.Contains(t, f.Description, "Test Collection")
	assert.Contains(t, f.Description, "[Opensea 🌊]")
}

func TestEvaluateFloorUnknownSale(t *testing.T) {
	current := record("0x1", victim, buyer, 0.95, "UNKNOWN", 1700000000)
	current.FloorPrice = 0
	p := defaultParams()
	p.FloorPriceUSD = 0

	findings := Evaluate(current, []marketplace.TransactionRecord{current}, p)
	require.Len(t, findings, 1)
	assert.Equal(t, AlertNftSaleFloorUnknown, findings[0].AlertID)
	assert.Contains(t, findings[0].Description, "no floor price detected")
}

func TestEvaluateOneFindingPerToken(t *testing.T) {
	current := record("0x1", victim, buyer, 0.95, "-5.00%", 1700000000)
	current.Tokens["456"] = marketplace.TokenInfo{
		Name: "Test Collection",
		Price: marketplace.TokenValue{
			Value:    0.95,
			Currency: marketplace.PriceCurrency{Name: "ETH", Decimals: 18},
		},
	}

	findings := Evaluate(current, []marketplace.TransactionRecord{current}, defaultParams())
	assert.Len(t, findings, 2)
}
