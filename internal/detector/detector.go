package detector

import (
	"fmt"
	"math"

	"github.com/nftsentinel/nftsentinel/internal/marketplace"
)

// Detection thresholds, in floor-diff percentage points.
const (
	aboveFloorThreshold  = 20.0
	phishingFloorCeiling = -98.0
	phishingFloorBottom  = -100.0
	resaleRecoveryDelta  = 80.0
)

// HistoryState classifies the price history available for the token that was
// just indexed.
type HistoryState int

const (
	// NoHistory: the trade just stored is the only one on record.
	NoHistory HistoryState = iota
	// SinglePrior: a prior trade exists but its buyer is not the current
	// seller, so the pair is not a resale chain.
	SinglePrior
	// ChainedPair: the prior buyer is the current seller; the two records
	// form a resale chain worth comparing.
	ChainedPair
)

// ClassifyHistory inspects the latest records of a token, newest first, with
// the current trade at index zero.
func ClassifyHistory(latest []marketplace.TransactionRecord) HistoryState {
	if len(latest) < 2 {
		return NoHistory
	}
	if latest[0].FromAddr == latest[1].ToAddr {
		return ChainedPair
	}
	return SinglePrior
}

// Params carries pricing facts the record alone does not hold.
type Params struct {
	Chain               marketplace.ChainID
	MinPhishingUsdValue float64
	FloorPriceUSD       float64
	IsZeroErc20         bool
	NativeErc20Value    float64
	Erc20Sum            float64
	Erc20Symbol         string
	TouchedAddresses    []string
}

// Evaluate runs the detection rules over the trade that was just stored.
// latest is the token's trade history, newest first, with the current trade
// at index zero. The function is pure: all I/O happens before it runs.
func Evaluate(record marketplace.TransactionRecord, latest []marketplace.TransactionRecord, p Params) []Finding {
	switch ClassifyHistory(latest) {
	case ChainedPair:
		return []Finding{compareChained(record, latest, p)}
	case SinglePrior:
		// A gap in the ownership chain means the prior sale tells us nothing
		// about this one.
		return nil
	default:
		return singleRecordFindings(record, p)
	}
}

// compareChained evaluates a resale: the token's previous buyer just sold it
// on. A prior sale at practically zero followed by a recovery to (or above)
// floor is the signature of a phished NFT being flipped.
func compareChained(record marketplace.TransactionRecord, latest []marketplace.TransactionRecord, p Params) Finding {
	current, last := latest[0], latest[1]
	chainCurrency := p.Chain.NativeSymbol()

	timeDiffMinutes := fmt.Sprintf("%.2f", float64(current.Timestamp-last.Timestamp)/60)
	avgItemPriceDifference := current.AvgItemPrice - last.AvgItemPrice

	currentSaleFloorDiff := marketplace.ExtractNumericalValue(current.FloorPriceDiff)
	lastSaleFloorDiff := marketplace.ExtractNumericalValue(last.FloorPriceDiff)
	recoveryDelta := math.Abs(math.Abs(currentSaleFloorDiff) - math.Abs(lastSaleFloorDiff))

	tokenID := firstTokenID(record.Tokens)
	name := record.ContractAddress
	if info, ok := record.Tokens[tokenID]; ok && info.Name != "" {
		name = info.Name
	}

	extraMetadata := map[string]string{
		"lastTxn":              last.TransactionHash,
		"currentSaleFloorDiff": current.FloorPriceDiff,
		"lastSaleFloorDiff":    last.FloorPriceDiff,
	}
	saleValueSuffix := fmt.Sprintf(", for a value of %v %s where the price floor is %v %s",
		marketplace.TruncateDecimal(current.AvgItemPrice), chainCurrency, current.FloorPrice, chainCurrency)

	stolen := (recoveryDelta > resaleRecoveryDelta || currentSaleFloorDiff > 0) &&
		lastSaleFloorDiff <= phishingFloorCeiling

	var f Finding
	if stolen {
		victim := last.FromAddr
		attacker := last.ToAddr
		profit := fmt.Sprintf("%.3f", math.Abs(avgItemPriceDifference))
		description := fmt.Sprintf("%s %s sold to %s by %s possibly stolen from %s in %s at %s of floor after %s minutes for a profit of %s %s",
			name, tokenID, current.ToAddr, last.ToAddr, victim, record.InteractedMarket,
			current.FloorPriceDiff, timeDiffMinutes, profit, chainCurrency)
		f = newFinding(record, description+saleValueSuffix, AlertStolenNftSale, TypeExploit, SeverityHigh, p.Chain, extraMetadata)
		f.Labels = append(f.Labels,
			Label{Entity: tokenID + "," + record.ContractAddress, EntityType: EntityAddress, Name: "stolen-nft", Confidence: 0.8},
			Label{Entity: victim, EntityType: EntityAddress, Name: "nft-phishing-victim", Confidence: 0.8},
			Label{Entity: attacker, EntityType: EntityAddress, Name: "nft-phishing-attacker", Confidence: 0.8},
			Label{Entity: last.TransactionHash, EntityType: EntityTransaction, Name: "nft-phishing-attack-hash", Confidence: 0.8},
		)
		f.Addresses = append(f.Addresses, victim, attacker)
	} else {
		description := fmt.Sprintf("%s %s sold to %s by %s in %s at %s of floor after %s minutes",
			name, tokenID, current.ToAddr, last.ToAddr, record.InteractedMarket,
			current.FloorPriceDiff, timeDiffMinutes)
		f = newFinding(record, description+saleValueSuffix, AlertIndexedNftSale, TypeInfo, SeverityInfo, p.Chain, extraMetadata)
		f.Labels = append(f.Labels,
			Label{Entity: tokenID + "," + record.ContractAddress, EntityType: EntityAddress, Name: "indexed-nft-sale", Confidence: 0.9},
		)
		f.Addresses = append(f.Addresses, last.ToAddr, current.ToAddr, current.FromAddr)
	}
	f.Addresses = append(f.Addresses, p.TouchedAddresses...)
	return f
}

// singleRecordFindings evaluates a trade with no usable history, one finding
// per token sold.
func singleRecordFindings(record marketplace.TransactionRecord, p Params) []Finding {
	chainCurrency := p.Chain.NativeSymbol()
	floorDiff := marketplace.ExtractNumericalValue(record.FloorPriceDiff)

	var findings []Finding
	for tokenKey, token := range record.Tokens {
		tokenName := token.Name
		if tokenName == "" {
			tokenName = marketplace.ShortenAddress(record.ContractAddress)
		}
		currencyName := token.Price.Currency.Name
		if currencyName == "ETH" {
			currencyName = chainCurrency
		}
		floorMessage := "(no floor price detected)"
		if record.FloorPrice != 0 {
			floorMessage = fmt.Sprintf("with collection floor of %.4f %s", record.FloorPrice, record.Currency)
		}
		extraInfo := fmt.Sprintf("at %.5f %s %s", record.AvgItemPrice, currencyName, floorMessage)
		extraMetadata := map[string]string{"tokenKey": tokenKey}

		var f Finding
		switch {
		case floorDiff >= aboveFloorThreshold:
			description := fmt.Sprintf("%s %s sold above the collection floor price, %s", tokenName, tokenKey, extraInfo)
			f = newFinding(record, description, AlertNftSoldAboveFloor, TypeInfo, SeverityInfo, p.Chain, extraMetadata)

		case floorDiff >= phishingFloorBottom && floorDiff <= phishingFloorCeiling && !p.IsZeroErc20:
			alertID := AlertNftPhishingSale
			severity := SeverityMedium
			if p.FloorPriceUSD < p.MinPhishingUsdValue {
				alertID = AlertNftLowValuePhishingSale
				severity = SeverityLow
			}
			description := fmt.Sprintf("%s %s sold for less than -98%% of the floor price, %s", tokenName, tokenKey, extraInfo)
			f = newFinding(record, description, alertID, TypeSuspicious, severity, p.Chain, extraMetadata)

		default:
			alertID := AlertNftSale
			if p.IsZeroErc20 {
				alertID = AlertNftSaleErc20Unknown
			}
			if p.FloorPriceUSD == 0 {
				alertID = AlertNftSaleFloorUnknown
			}
			saleValue := fmt.Sprintf("%v", marketplace.TruncateDecimal(record.AvgItemPrice))
			ercToNative := ""
			if p.NativeErc20Value != 0 {
				saleValue = fmt.Sprintf("%v", p.Erc20Sum)
				ercToNative = fmt.Sprintf(" (~%v %s)", p.NativeErc20Value, chainCurrency)
			}
			saleCurrency := currencyName
			if saleCurrency == "" {
				saleCurrency = chainCurrency
			}
			if p.Erc20Symbol != "" && p.NativeErc20Value != 0 {
				saleCurrency = p.Erc20Symbol
			}
			description := fmt.Sprintf("%s id %s sold at %s %s%s %s (%s)",
				tokenName, tokenKey, saleValue, saleCurrency, ercToNative, floorMessage, record.FloorPriceDiff)
			f = newFinding(record, description, alertID, TypeInfo, SeverityInfo, p.Chain, extraMetadata)
		}

		f.Addresses = append(f.Addresses, p.TouchedAddresses...)
		findings = append(findings, f)
	}
	return findings
}

func firstTokenID(tokens map[string]marketplace.TokenInfo) string {
	first := ""
	for k := range tokens {
		if first == "" || k < first {
			first = k
		}
	}
	return first
}
