package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLlamaClient(baseURL string) *LlamaClient {
	c := NewLlamaClient(testRetryPolicy(), 16, time.Minute)
	c.baseURL = baseURL
	return c
}

func TestErc20UsdPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/current/ethereum:0xd1d2eb1b1e90b638588728b4130137d262c87cae", r.URL.Path)
		w.Write([]byte(`{"coins": {"ethereum:0xd1d2eb1b1e90b638588728b4130137d262c87cae": {"price": 0.025}}}`))
	}))
	defer srv.Close()

	c := newTestLlamaClient(srv.URL)
	price, err := c.Erc20UsdPrice(context.Background(), marketplace.ChainEthereum, "0xd1d2Eb1B1e90B638588728b4130137D262C87cae")
	require.NoError(t, err)
	assert.Equal(t, 0.025, price)
}

func TestNativeUsdPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/current/coingecko:ethereum", r.URL.Path)
		w.Write([]byte(`{"coins": {"coingecko:ethereum": {"price": 1850.4}}}`))
	}))
	defer srv.Close()

	c := newTestLlamaClient(srv.URL)
	price, err := c.NativeUsdPrice(context.Background(), marketplace.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, 1850.4, price)
}

func TestPriceMissingCoinIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"coins": {}}`))
	}))
	defer srv.Close()

	c := newTestLlamaClient(srv.URL)
	price, err := c.Erc20UsdPrice(context.Background(), marketplace.ChainEthereum, "0x7777777777777777777777777777777777777777")
	require.NoError(t, err)
	assert.Equal(t, 0.0, price)
}

func TestPriceFeedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestLlamaClient(srv.URL)
	_, err := c.NativeUsdPrice(context.Background(), marketplace.ChainEthereum)
	assert.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestPriceCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"coins": {"coingecko:ethereum": {"price": 1850}}}`))
	}))
	defer srv.Close()

	c := newTestLlamaClient(srv.URL)
	_, err := c.NativeUsdPrice(context.Background(), marketplace.ChainEthereum)
	require.NoError(t, err)
	_, err = c.NativeUsdPrice(context.Background(), marketplace.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
