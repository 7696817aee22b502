package detector

import (
	"fmt"

	"github.com/nftsentinel/nftsentinel/internal/marketplace"
)

// Severity ranks how urgent a finding is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// FindingType classifies what kind of activity a finding describes.
type FindingType int

const (
	TypeInfo FindingType = iota
	TypeSuspicious
	TypeExploit
)

func (t FindingType) String() string {
	switch t {
	case TypeSuspicious:
		return "SUSPICIOUS"
	case TypeExploit:
		return "EXPLOIT"
	default:
		return "INFO"
	}
}

// AlertID names the detection rule a finding came from.
type AlertID string

const (
	AlertNftSale                 AlertID = "nft-sale"
	AlertNftSaleErc20Unknown     AlertID = "nft-sale-erc20-price-unknown"
	AlertNftSaleFloorUnknown     AlertID = "nft-sale-floor-price-unknown"
	AlertNftSoldAboveFloor       AlertID = "nft-sold-above-floor-price"
	AlertNftPhishingSale         AlertID = "nft-phishing-sale"
	AlertNftLowValuePhishingSale AlertID = "nft-potential-low-value-phishing-sale"
	AlertIndexedNftSale          AlertID = "indexed-nft-sale"
	AlertStolenNftSale           AlertID = "stolen-nft-sale"
)

// EntityType says what kind of entity a label points at.
type EntityType int

const (
	EntityAddress EntityType = iota
	EntityTransaction
)

func (e EntityType) String() string {
	if e == EntityTransaction {
		return "TRANSACTION"
	}
	return "ADDRESS"
}

// Label tags an entity with a classification and a confidence.
type Label struct {
	Entity     string
	EntityType EntityType
	Name       string
	Confidence float64
}

// Finding is one emitted detection result.
type Finding struct {
	Name        string
	Description string
	AlertID     AlertID
	Severity    Severity
	Type        FindingType
	Protocol    string
	Metadata    map[string]string
	Addresses   []string
	Labels      []Label
}

func protocolName(chain marketplace.ChainID) string {
	switch chain {
	case marketplace.ChainBSC:
		return "bsc"
	case marketplace.ChainPolygon:
		return "polygon"
	default:
		return "ethereum"
	}
}

func marketDisplay(market string) string {
	switch market {
	case "blur", "blurswap":
		return "Blur 🟠"
	case "opensea":
		return "Opensea 🌊"
	case "looksrare":
		return "LooksRare 👀💎"
	default:
		return ""
	}
}

// newFinding builds a finding from a trade record, attaching the base
// metadata, the parties as addresses, and the labels the alert id implies.
func newFinding(record marketplace.TransactionRecord, description string, alertID AlertID, ftype FindingType, severity Severity, chain marketplace.ChainID, extraMetadata map[string]string) Finding {
	metadata := map[string]string{
		"interactedMarket": record.InteractedMarket,
		"transactionHash":  record.TransactionHash,
		"toAddr":           record.ToAddr,
		"fromAddr":         record.FromAddr,
		"initiator":        record.Initiator,
		"totalPrice":       fmt.Sprintf("%g", record.TotalPrice),
		"avgItemPrice":     fmt.Sprintf("%g", record.AvgItemPrice),
		"contractAddress":  record.ContractAddress,
		"floorPrice":       fmt.Sprintf("%g", record.FloorPrice),
		"currency":         record.Currency,
		"timestamp":        fmt.Sprintf("%d", record.Timestamp),
	}
	if record.FloorPriceDiff != "" {
		metadata["floorPriceDiff"] = record.FloorPriceDiff
	} else {
		metadata["floorPriceDiff"] = "ERROR"
	}
	for k, v := range extraMetadata {
		metadata[k] = v
	}

	description = withMarketPrefix(record.InteractedMarket, description)

	f := Finding{
		Name:        "suspicious-nft-trade",
		Description: description,
		AlertID:     alertID,
		Severity:    severity,
		Type:        ftype,
		Protocol:    protocolName(chain),
		Metadata:    metadata,
		Addresses:   []string{record.FromAddr, record.ToAddr, record.Initiator},
	}

	tokenKey := metadata["tokenKey"]
	switch alertID {
	case AlertNftSale, AlertNftSaleErc20Unknown, AlertNftSaleFloorUnknown:
		f.Labels = append(f.Labels,
			Label{Entity: tokenKey + "," + record.ContractAddress, EntityType: EntityAddress, Name: "nft-sale-record", Confidence: 0.9},
			Label{Entity: record.FromAddr, EntityType: EntityAddress, Name: "nft-sender", Confidence: 0.8},
			Label{Entity: record.ToAddr, EntityType: EntityAddress, Name: "nft-receiver", Confidence: 0.8},
		)
	case AlertNftSoldAboveFloor:
		f.Labels = append(f.Labels,
			Label{Entity: tokenKey + "," + record.ContractAddress, EntityType: EntityAddress, Name: "nft-sold-above-floor-price", Confidence: 0.9},
		)
	case AlertNftPhishingSale, AlertNftLowValuePhishingSale:
		f.Labels = append(f.Labels,
			Label{Entity: tokenKey + "," + record.ContractAddress, EntityType: EntityAddress, Name: "nft-phishing-transfer", Confidence: 0.9},
			Label{Entity: record.FromAddr, EntityType: EntityAddress, Name: "nft-phishing-victim", Confidence: 0.8},
			Label{Entity: record.ToAddr, EntityType: EntityAddress, Name: "nft-phishing-attacker", Confidence: 0.8},
		)
	}
	return f
}

func withMarketPrefix(market, description string) string {
	if display := marketDisplay(market); display != "" {
		return "[" + display + "] " + description
	}
	return description
}
