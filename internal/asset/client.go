package asset

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/starfund/mes/internal/config"
	"github.com/starfund/mes/internal/logger"
)

// ERC-20 资产合约ABI（仅划转相关部分）
const tokenABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

const transferGasLimit = 90000

// Client 链上资产划转客户端，托管账户私钥由服务持有
type Client struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	fromAddr   common.Address
	tokenAddr  common.Address
	chainId    *big.Int
	tokenABI   abi.ABI
}

// Init 创建链上资产客户端
func Init(cfg config.ChainConfig) (*Client, error) {
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain rpc: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	return &Client{
		client:     client,
		privateKey: privateKey,
		fromAddr:   crypto.PubkeyToAddress(privateKey.PublicKey),
		tokenAddr:  common.HexToAddress(cfg.AssetAddress),
		chainId:    big.NewInt(cfg.ChainId),
		tokenABI:   parsedABI,
	}, nil
}

// Transfer 调用资产合约完成划转。from 为托管账户本身时走 transfer，
// 否则走 transferFrom（依赖投资人事先授权托管账户）
func (c *Client) Transfer(ctx context.Context, from, to string, amount int64) (string, error) {
	fromAddr := common.HexToAddress(from)
	toAddr := common.HexToAddress(to)
	value := big.NewInt(amount)

	var data []byte
	var err error
	if fromAddr == c.fromAddr {
		data, err = c.tokenABI.Pack("transfer", toAddr, value)
	} else {
		data, err = c.tokenABI.Pack("transferFrom", fromAddr, toAddr, value)
	}
	if err != nil {
		return "", fmt.Errorf("failed to pack transfer call: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.fromAddr)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, c.tokenAddr, big.NewInt(0), transferGasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainId), c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transfer tx: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transfer tx: %w", err)
	}

	logger.Info("Asset transfer submitted: %s -> %s amount %d tx %s",
		from, to, amount, signedTx.Hash().Hex())

	return signedTx.Hash().Hex(), nil
}
