package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/time/rate"
)

var ErrExplorerUnavailable = errors.New("block explorer unavailable")

// ExplorerReceipt is the subset of a transaction receipt returned by the explorer proxy.
type ExplorerReceipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	From        common.Address `json:"from"`
	Status      hexutil.Uint64 `json:"status"`
	Logs        []ExplorerLog  `json:"logs"`
}

type ExplorerLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

type ExplorerTx struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
}

type proxyResponse struct {
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExplorerClient talks to an Etherscan-compatible explorer's JSON-RPC proxy.
type ExplorerClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func NewExplorerClient(baseURL, apiKey string, rps float64) *ExplorerClient {
	if rps <= 0 {
		rps = 4
	}
	return &ExplorerClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// TransactionReceipt returns nil without error when the explorer doesn't know the hash yet.
func (c *ExplorerClient) TransactionReceipt(ctx context.Context, txHash string) (*ExplorerReceipt, error) {
	var receipt ExplorerReceipt
	found, err := c.proxy(ctx, "eth_getTransactionReceipt", txHash, &receipt)
	if err != nil || !found {
		return nil, err
	}
	return &receipt, nil
}

func (c *ExplorerClient) TransactionByHash(ctx context.Context, txHash string) (*ExplorerTx, error) {
	var tx ExplorerTx
	found, err := c.proxy(ctx, "eth_getTransactionByHash", txHash, &tx)
	if err != nil || !found {
		return nil, err
	}
	return &tx, nil
}

func (c *ExplorerClient) proxy(ctx context.Context, action, txHash string, out interface{}) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	q := url.Values{}
	q.Set("module", "proxy")
	q.Set("action", action)
	q.Set("txhash", txHash)
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrExplorerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return false, fmt.Errorf("%w: read body: %w", ErrExplorerUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrExplorerUnavailable, resp.StatusCode)
	}

	var pr proxyResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return false, fmt.Errorf("%w: decode: %w", ErrExplorerUnavailable, err)
	}
	if pr.Error != nil {
		return false, fmt.Errorf("%w: %s", ErrExplorerUnavailable, pr.Error.Message)
	}
	result := bytes.TrimSpace(pr.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return false, nil
	}
	// rate limits and bad keys come back as a plain string result
	if result[0] == '"' {
		var msg string
		_ = json.Unmarshal(result, &msg)
		return false, fmt.Errorf("%w: %s", ErrExplorerUnavailable, msg)
	}
	if err := json.Unmarshal(result, out); err != nil {
		return false, fmt.Errorf("%w: decode result: %w", ErrExplorerUnavailable, err)
	}
	return true, nil
}
