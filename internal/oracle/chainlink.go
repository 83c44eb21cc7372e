package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Minimal aggregator surface: latestRoundData + decimals.
const aggregatorABI = `[
  {"inputs":[],"name":"latestRoundData","outputs":[
    {"internalType":"uint80","name":"roundId","type":"uint80"},
    {"internalType":"int256","name":"answer","type":"int256"},
    {"internalType":"uint256","name":"startedAt","type":"uint256"},
    {"internalType":"uint256","name":"updatedAt","type":"uint256"},
    {"internalType":"uint80","name":"answeredInRound","type":"uint80"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[],"name":"decimals","outputs":[
    {"internalType":"uint8","name":"","type":"uint8"}],
   "stateMutability":"view","type":"function"}
]`

// ChainlinkFeed reads a Chainlink-compatible aggregator contract over
// JSON-RPC. Decimals are fetched once at construction; rounds are fetched
// per call so the adapter always judges the on-chain updatedAt, not a local
// cache.
type ChainlinkFeed struct {
	client   *ethclient.Client
	address  common.Address
	abi      abi.ABI
	decimals uint8
}

// NewChainlinkFeed dials nothing itself; the caller owns the client so one
// RPC connection can back every feed.
func NewChainlinkFeed(ctx context.Context, client *ethclient.Client, address common.Address) (*ChainlinkFeed, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("parse aggregator abi: %w", err)
	}

	f := &ChainlinkFeed{
		client:  client,
		address: address,
		abi:     parsed,
	}

	dec, err := f.fetchDecimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch decimals for %s: %w", address.Hex(), err)
	}
	f.decimals = dec

	return f, nil
}

// LatestRound implements PriceFeed.
func (f *ChainlinkFeed) LatestRound(ctx context.Context) (Round, error) {
	data, err := f.abi.Pack("latestRoundData")
	if err != nil {
		return Round{}, fmt.Errorf("pack latestRoundData: %w", err)
	}

	raw, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: data}, nil)
	if err != nil {
		return Round{}, fmt.Errorf("call %s: %w", f.address.Hex(), err)
	}

	out, err := f.abi.Unpack("latestRoundData", raw)
	if err != nil {
		return Round{}, fmt.Errorf("unpack latestRoundData: %w", err)
	}
	if len(out) != 5 {
		return Round{}, fmt.Errorf("latestRoundData returned %d values", len(out))
	}

	answer, ok := out[1].(*big.Int)
	if !ok {
		return Round{}, fmt.Errorf("latestRoundData answer has unexpected type %T", out[1])
	}
	updatedAt, ok := out[3].(*big.Int)
	if !ok {
		return Round{}, fmt.Errorf("latestRoundData updatedAt has unexpected type %T", out[3])
	}

	return Round{
		Price:     answer,
		Decimals:  f.decimals,
		UpdatedAt: time.Unix(updatedAt.Int64(), 0),
	}, nil
}

func (f *ChainlinkFeed) fetchDecimals(ctx context.Context) (uint8, error) {
	data, err := f.abi.Pack("decimals")
	if err != nil {
		return 0, err
	}

	raw, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: data}, nil)
	if err != nil {
		return 0, err
	}

	out, err := f.abi.Unpack("decimals", raw)
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("decimals returned %d values", len(out))
	}

	dec, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals has unexpected type %T", out[0])
	}
	return dec, nil
}
