package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiptJSON = `{"jsonrpc":"2.0","id":1,"result":{
"transactionHash":"0x1111111111111111111111111111111111111111111111111111111111111111",
"blockNumber":"0x2a",
"from":"0x00000000000000000000000000000000000000aa",
"status":"0x1",
"logs":[{"address":"0x55d398326f99059ff775485246999027b3197955",
"topics":["0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"],
"data":"0x01"}]}}`

func TestExplorerReceipt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "proxy", q.Get("module"))
		assert.Equal(t, "eth_getTransactionReceipt", q.Get("action"))
		assert.Equal(t, "0xabc", q.Get("txhash"))
		assert.Equal(t, "key", q.Get("apikey"))
		_, _ = w.Write([]byte(receiptJSON))
	}))
	defer srv.Close()

	rc, err := NewExplorerClient(srv.URL, "key", 100).TransactionReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.EqualValues(t, 42, rc.BlockNumber)
	assert.EqualValues(t, 1, rc.Status)
	assert.Equal(t, common.HexToAddress(walletA), rc.From)
	require.Len(t, rc.Logs, 1)
	assert.Equal(t, transferEventSig, rc.Logs[0].Topics[0])
	assert.Equal(t, []byte{1}, []byte(rc.Logs[0].Data))
}

func TestExplorerNullResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	}))
	defer srv.Close()

	c := NewExplorerClient(srv.URL, "", 100)
	rc, err := c.TransactionReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, rc)
	tx, err := c.TransactionByHash(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestExplorerUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"rate limited": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`))
		},
		"rpc error": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"boom"}}`))
		},
		"http 500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := NewExplorerClient(srv.URL, "", 100).TransactionReceipt(context.Background(), "0xabc")
			assert.ErrorIs(t, err, ErrExplorerUnavailable)
		})
	}
}
