package tradedb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/nftsentinel/nftsentinel/internal/db"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
)

// ErrDuplicateTrade marks an insert for a transaction hash that is already
// recorded. Replayed transactions are expected during re-indexing and are
// treated as no-ops by callers.
var ErrDuplicateTrade = errors.New("trade already recorded for transaction hash")

// TradeDb persists reconstructed trades and serves the price history the
// detector compares against.
type TradeDb interface {
	StoreTrade(tx *sql.Tx, record marketplace.TransactionRecord) error
	GetLatestTrades(rq db.QueryRunner, contractAddress string, tokenID string, limit int) ([]marketplace.TransactionRecord, error)
	GetTradeByHash(rq db.QueryRunner, txHash string) (*marketplace.TransactionRecord, error)
	CountTrades(rq db.QueryRunner) (int, error)
}

func NewTradeDb() TradeDb {
	return &TradeDbImpl{}
}

type TradeDbImpl struct{}

const insertTradeSQL = `
	INSERT INTO trades (
		transaction_hash, interacted_market, to_address, from_address, initiator,
		total_price, total_price_usd, avg_item_price, contract_address,
		floor_price, currency, timestamp, floor_price_diff
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertTradeItemSQL = `
	INSERT INTO trade_items (
		transaction_hash, token_id, name, price_value, price_currency,
		price_decimals, contract_address
	) VALUES (?, ?, ?, ?, ?, ?, ?)`

// StoreTrade writes the trade and all its token rows in the caller's
// transaction, so a failed item insert rolls back the whole trade.
func (t *TradeDbImpl) StoreTrade(tx *sql.Tx, record marketplace.TransactionRecord) error {
	_, err := tx.Exec(insertTradeSQL,
		strings.ToLower(record.TransactionHash),
		record.InteractedMarket,
		strings.ToLower(record.ToAddr),
		strings.ToLower(record.FromAddr),
		strings.ToLower(record.Initiator),
		record.TotalPrice,
		record.TotalPriceInUSD,
		record.AvgItemPrice,
		strings.ToLower(record.ContractAddress),
		record.FloorPrice,
		record.Currency,
		record.Timestamp,
		record.FloorPriceDiff,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateTrade, record.TransactionHash)
		}
		return err
	}
	for tokenID, info := range record.Tokens {
		_, err = tx.Exec(insertTradeItemSQL,
			strings.ToLower(record.TransactionHash),
			tokenID,
			info.Name,
			info.Price.Value,
			info.Price.Currency.Name,
			info.Price.Currency.Decimals,
			strings.ToLower(record.ContractAddress),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

const latestTradesSQL = `
	SELECT t.transaction_hash, t.interacted_market, t.to_address, t.from_address,
		t.initiator, t.total_price, t.total_price_usd, t.avg_item_price,
		t.contract_address, t.floor_price, t.currency, t.timestamp,
		t.floor_price_diff, i.token_id, i.name, i.price_value, i.price_currency,
		i.price_decimals
	FROM trades t
	JOIN trade_items i ON i.transaction_hash = t.transaction_hash
	WHERE i.contract_address = ? AND i.token_id = ?
	ORDER BY t.timestamp DESC
	LIMIT ?`

// GetLatestTrades returns the most recent trades of one token, newest first.
// Each returned record carries the single matching token row.
func (t *TradeDbImpl) GetLatestTrades(rq db.QueryRunner, contractAddress string, tokenID string, limit int) ([]marketplace.TransactionRecord, error) {
	rows, err := rq.Query(latestTradesSQL, strings.ToLower(contractAddress), tokenID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []marketplace.TransactionRecord
	for rows.Next() {
		rec, err := scanTradeRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const tradeByHashSQL = `
	SELECT t.transaction_hash, t.interacted_market, t.to_address, t.from_address,
		t.initiator, t.total_price, t.total_price_usd, t.avg_item_price,
		t.contract_address, t.floor_price, t.currency, t.timestamp,
		t.floor_price_diff, i.token_id, i.name, i.price_value, i.price_currency,
		i.price_decimals
	FROM trades t
	JOIN trade_items i ON i.transaction_hash = t.transaction_hash
	WHERE t.transaction_hash = ?`

// GetTradeByHash returns one trade with all its token rows, or nil when the
// hash is unknown.
func (t *TradeDbImpl) GetTradeByHash(rq db.QueryRunner, txHash string) (*marketplace.TransactionRecord, error) {
	rows, err := rq.Query(tradeByHashSQL, strings.ToLower(txHash))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var record *marketplace.TransactionRecord
	for rows.Next() {
		rec, err := scanTradeRow(rows)
		if err != nil {
			return nil, err
		}
		if record == nil {
			record = &rec
		} else {
			for id, info := range rec.Tokens {
				record.Tokens[id] = info
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return record, nil
}

func (t *TradeDbImpl) CountTrades(rq db.QueryRunner) (int, error) {
	row := rq.QueryRow("SELECT COUNT(*) FROM trades")
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTradeRow(rows *sql.Rows) (marketplace.TransactionRecord, error) {
	var (
		rec      marketplace.TransactionRecord
		tokenID  string
		name     string
		value    float64
		currency string
		decimals uint8
	)
	err := rows.Scan(
		&rec.TransactionHash, &rec.InteractedMarket, &rec.ToAddr, &rec.FromAddr,
		&rec.Initiator, &rec.TotalPrice, &rec.TotalPriceInUSD, &rec.AvgItemPrice,
		&rec.ContractAddress, &rec.FloorPrice, &rec.Currency, &rec.Timestamp,
		&rec.FloorPriceDiff, &tokenID, &name, &value, &currency, &decimals,
	)
	if err != nil {
		return marketplace.TransactionRecord{}, err
	}
	rec.Tokens = map[string]marketplace.TokenInfo{
		tokenID: {
			Name: name,
			Price: marketplace.TokenValue{
				Value:    value,
				Currency: marketplace.PriceCurrency{Name: currency, Decimals: decimals},
			},
		},
	}
	return rec, nil
}
