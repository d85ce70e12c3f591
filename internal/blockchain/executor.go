package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/Ludium-Official/ludium-world-payment/internal/contract"
	"github.com/Ludium-Official/ludium-world-payment/pkg/logger"
)

// AssetKind 转账资产类型
type AssetKind int

const (
	AssetNative AssetKind = iota
	AssetFT
)

func (k AssetKind) String() string {
	switch k {
	case AssetNative:
		return "NATIVE"
	case AssetFT:
		return "FT"
	default:
		return "UNKNOWN"
	}
}

// TransferRequest 一次转账
type TransferRequest struct {
	Asset    AssetKind
	Receiver common.Address
	Contract common.Address // FT 合约
	Amount   *big.Int       // 最小单位
}

// ReceiptFailure 回执级失败
type ReceiptFailure struct {
	TxHash string
	Reason string
}

// TransferOutcome 转账执行结果
type TransferOutcome struct {
	Sender   common.Address
	TxHash   string   // 转账交易
	TxHashes []string // 本次提交的全部交易, 含存储注册
	Failures []ReceiptFailure
}

// HasErrors 任一回执失败即视为整体失败
func (o *TransferOutcome) HasErrors() bool {
	return o != nil && len(o.Failures) > 0
}

// FailureReason 汇总失败原因
func (o *TransferOutcome) FailureReason() string {
	if !o.HasErrors() {
		return ""
	}
	reason := o.Failures[0].Reason
	for _, f := range o.Failures[1:] {
		reason += "; " + f.Reason
	}
	return reason
}

// ExecutorConfig 执行器配置
type ExecutorConfig struct {
	ChainID             int64
	GasLimitNative      uint64
	GasLimitCall        uint64
	StorageDeposit      *big.Int
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
	// Forwarder 非空时 FT 转账走 ERC-2771 代付
	Forwarder *ForwarderDomain
}

// Executor 签名并执行转账
type Executor struct {
	client     ChainClient
	keys       *KeyPool
	nonces     NonceAllocator
	metaNonces NonceAllocator
	whitelist  *Whitelist
	cfg        ExecutorConfig
}

// NewExecutor 创建执行器
func NewExecutor(client ChainClient, keys *KeyPool, nonces NonceAllocator, whitelist *Whitelist, cfg ExecutorConfig) *Executor {
	if cfg.GasLimitNative == 0 {
		cfg.GasLimitNative = 21000
	}
	if cfg.GasLimitCall == 0 {
		cfg.GasLimitCall = 200000
	}
	if cfg.StorageDeposit == nil {
		cfg.StorageDeposit = new(big.Int)
	}
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = time.Minute
	}
	if cfg.ReceiptPollInterval == 0 {
		cfg.ReceiptPollInterval = time.Second
	}
	if nonces == nil {
		nonces = NewLocalNonceAllocator()
	}
	return &Executor{
		client:     client,
		keys:       keys,
		nonces:     nonces,
		metaNonces: NewLocalNonceAllocator(),
		whitelist:  whitelist,
		cfg:        cfg,
	}
}

// Delegated 是否启用代付
func (e *Executor) Delegated() bool {
	return e.cfg.Forwarder != nil
}

// Transfer 执行转账, 提交后等待并检查所有回执
// 执行失败时同时返回结果与错误
func (e *Executor) Transfer(ctx context.Context, req *TransferRequest) (*TransferOutcome, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, newTxError(TxErrorExecutionFailed, "amount must be positive")
	}

	signer := e.keys.Next()
	if err := e.whitelist.CheckSender(signer.Address()); err != nil {
		return nil, err
	}

	outcome := &TransferOutcome{Sender: signer.Address()}

	switch req.Asset {
	case AssetNative:
		hash, err := e.send(ctx, signer, req.Receiver, req.Amount, nil, e.cfg.GasLimitNative)
		if err != nil {
			return nil, err
		}
		outcome.TxHash = hash.Hex()
		outcome.TxHashes = append(outcome.TxHashes, hash.Hex())
		receipt, err := e.waitReceipt(ctx, signer, hash)
		if err != nil {
			return outcome, err
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			outcome.Failures = append(outcome.Failures, ReceiptFailure{TxHash: hash.Hex(), Reason: "native transfer reverted"})
		}

	case AssetFT:
		if err := e.whitelist.CheckContract(req.Contract); err != nil {
			return nil, err
		}
		token, err := contract.NewToken(req.Contract)
		if err != nil {
			return nil, err
		}

		regHash, err := e.EnsureStorageRegistered(ctx, signer, token, req.Receiver)
		if regHash != "" {
			outcome.TxHashes = append(outcome.TxHashes, regHash)
		}
		if err != nil {
			return outcome, err
		}

		hash, err := e.sendTokenTransfer(ctx, signer, token, req)
		if err != nil {
			return outcome, err
		}
		outcome.TxHash = hash.Hex()
		outcome.TxHashes = append(outcome.TxHashes, hash.Hex())
		receipt, err := e.waitReceipt(ctx, signer, hash)
		if err != nil {
			e.resetMetaNonce(ctx, signer)
			return outcome, err
		}
		if failures := e.inspectTokenReceipt(token, req, receipt); len(failures) > 0 {
			// 外层回滚时链上 nonce 未消耗, 内层失败时已消耗, 两种情况都以链上 getNonce 重新对齐
			e.resetMetaNonce(ctx, signer)
			outcome.Failures = append(outcome.Failures, failures...)
		}

	default:
		return nil, newTxError(TxErrorExecutionFailed, fmt.Sprintf("unsupported asset kind %s", req.Asset))
	}

	if outcome.HasErrors() {
		logger.Warn("transfer execution failed",
			zap.String("tx_hash", outcome.TxHash),
			zap.String("sender", signer.Address().Hex()),
			zap.String("reason", outcome.FailureReason()))
		return outcome, &TxError{Kind: TxErrorExecutionFailed, Reason: outcome.FailureReason(), TxHash: outcome.TxHash}
	}

	logger.Info("transfer executed",
		zap.String("asset", req.Asset.String()),
		zap.String("tx_hash", outcome.TxHash),
		zap.String("sender", signer.Address().Hex()),
		zap.String("receiver", req.Receiver.Hex()),
		zap.String("amount", req.Amount.String()))
	return outcome, nil
}

// EnsureStorageRegistered 接收方未注册时先存入注册费, 已注册为空操作
// 返回注册交易哈希, 未发送时为空串
func (e *Executor) EnsureStorageRegistered(ctx context.Context, signer *Signer, token *contract.Token, account common.Address) (string, error) {
	data, err := token.PackStorageBalanceOf(account)
	if err != nil {
		return "", err
	}
	to := token.Address()
	ret, err := e.client.CallContract(ctx, ethereum.CallMsg{From: signer.Address(), To: &to, Data: data}, nil)
	if err != nil {
		return "", &TxError{Kind: TxErrorRegistrationFailed, Reason: "storage balance query failed: " + err.Error(), Err: err}
	}
	balance, err := token.UnpackStorageBalanceOf(ret)
	if err != nil {
		return "", &TxError{Kind: TxErrorRegistrationFailed, Reason: "storage balance decode failed: " + err.Error(), Err: err}
	}
	if balance.Sign() > 0 {
		return "", nil
	}

	data, err = token.PackStorageDeposit(account, true)
	if err != nil {
		return "", err
	}
	hash, err := e.send(ctx, signer, to, e.cfg.StorageDeposit, data, e.cfg.GasLimitCall)
	if err != nil {
		// nonce/签名错误保持原分类以便重试
		if IsRetryable(err) {
			return "", err
		}
		return "", &TxError{Kind: TxErrorRegistrationFailed, Reason: "storage deposit rejected: " + err.Error(), Err: err}
	}

	receipt, err := e.waitReceipt(ctx, signer, hash)
	if err != nil {
		return hash.Hex(), &TxError{Kind: TxErrorRegistrationFailed, Reason: "storage deposit not confirmed: " + err.Error(), TxHash: hash.Hex(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return hash.Hex(), &TxError{Kind: TxErrorRegistrationFailed, Reason: "storage deposit reverted", TxHash: hash.Hex()}
	}

	logger.Info("storage registered",
		zap.String("contract", to.Hex()),
		zap.String("account", account.Hex()),
		zap.String("tx_hash", hash.Hex()))
	return hash.Hex(), nil
}

// sendTokenTransfer 直接调用 transfer 或经 Forwarder 代付
func (e *Executor) sendTokenTransfer(ctx context.Context, signer *Signer, token *contract.Token, req *TransferRequest) (common.Hash, error) {
	callData, err := token.PackTransfer(req.Receiver, req.Amount)
	if err != nil {
		return common.Hash{}, err
	}
	if !e.Delegated() {
		return e.send(ctx, signer, token.Address(), nil, callData, e.cfg.GasLimitCall)
	}

	domain := *e.cfg.Forwarder
	fwd, err := contract.NewForwarder(domain.VerifyingContract)
	if err != nil {
		return common.Hash{}, err
	}
	metaNonce, err := e.forwarderNonce(ctx, signer, fwd)
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := e.sendForwarded(ctx, signer, domain, fwd, token, callData, metaNonce)
	if err != nil {
		// 已分配的 meta nonce 未上链
		e.resetMetaNonce(ctx, signer)
		return common.Hash{}, err
	}
	return hash, nil
}

func (e *Executor) sendForwarded(ctx context.Context, signer *Signer, domain ForwarderDomain, fwd *contract.Forwarder, token *contract.Token, callData []byte, metaNonce uint64) (common.Hash, error) {
	fr := &contract.ForwardRequest{
		From:  signer.Address(),
		To:    token.Address(),
		Value: new(big.Int),
		Gas:   new(big.Int).SetUint64(e.cfg.GasLimitCall),
		Nonce: new(big.Int).SetUint64(metaNonce),
		Data:  callData,
	}
	sig, err := SignForwardRequest(signer, domain, fr)
	if err != nil {
		return common.Hash{}, err
	}
	data, err := fwd.PackExecute(fr, sig)
	if err != nil {
		return common.Hash{}, &TxError{Kind: TxErrorInvalidDelegate, Reason: err.Error(), Err: err}
	}

	// 外层交易需覆盖内层 gas 及 Forwarder 自身开销
	return e.send(ctx, signer, fwd.Address(), nil, data, e.cfg.GasLimitCall*2)
}

// resetMetaNonce 丢弃 Forwarder nonce 的本地偏移
func (e *Executor) resetMetaNonce(ctx context.Context, signer *Signer) {
	if !e.Delegated() {
		return
	}
	if err := e.metaNonces.Reset(context.WithoutCancel(ctx), signer.Address()); err != nil {
		logger.Warn("failed to reset forwarder nonce", zap.String("sender", signer.Address().Hex()), zap.Error(err))
	}
}

// forwarderNonce 链上 getNonce 加本地偏移
func (e *Executor) forwarderNonce(ctx context.Context, signer *Signer, fwd *contract.Forwarder) (uint64, error) {
	data, err := fwd.PackGetNonce(signer.Address())
	if err != nil {
		return 0, err
	}
	to := fwd.Address()
	ret, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return 0, ClassifySendError(err)
	}
	onChain, err := fwd.UnpackGetNonce(ret)
	if err != nil {
		return 0, &TxError{Kind: TxErrorInvalidDelegate, Reason: "forwarder nonce decode failed: " + err.Error(), Err: err}
	}
	return e.metaNonces.Next(ctx, signer.Address(), onChain.Uint64())
}

// send 构建、签名并广播一笔 legacy 交易
// 节点拒绝交易时重置该地址的 nonce 偏移, 被拒的 nonce 不会上链
func (e *Executor) send(ctx context.Context, signer *Signer, to common.Address, value *big.Int, data []byte, gas uint64) (common.Hash, error) {
	addr := signer.Address()

	pending, err := e.client.PendingNonceAt(ctx, addr)
	if err != nil {
		return common.Hash{}, ClassifySendError(err)
	}
	nonce, err := e.nonces.Next(ctx, addr, pending)
	if err != nil {
		return common.Hash{}, &TxError{Kind: TxErrorRPC, Reason: "nonce allocation failed: " + err.Error(), Err: err}
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		e.nonces.Reset(ctx, addr)
		return common.Hash{}, ClassifySendError(err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    orZero(value),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := signer.SignTx(tx, e.cfg.ChainID)
	if err != nil {
		e.nonces.Reset(ctx, addr)
		return common.Hash{}, &TxError{Kind: TxErrorInvalidSignature, Reason: err.Error(), Err: err}
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		if isAlreadyKnown(err) {
			return signed.Hash(), nil
		}
		e.nonces.Reset(ctx, addr)
		txErr := ClassifySendError(err)
		logger.Warn("transaction rejected",
			zap.String("sender", addr.Hex()),
			zap.Uint64("nonce", nonce),
			zap.String("kind", txErr.Kind.String()),
			zap.Error(err))
		return common.Hash{}, txErr
	}

	logger.Debug("transaction sent",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("sender", addr.Hex()),
		zap.Uint64("nonce", nonce))
	return signed.Hash(), nil
}

// waitReceipt 轮询回执直到超时
// 超时的交易可能已被节点丢弃, 重置偏移后以节点 pending nonce 为准
func (e *Executor) waitReceipt(ctx context.Context, signer *Signer, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.client.GetTransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ErrTxNotFound) {
			logger.Debug("receipt query failed", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-waitCtx.Done():
			if err := e.nonces.Reset(context.WithoutCancel(ctx), signer.Address()); err != nil {
				logger.Warn("failed to reset nonce", zap.String("sender", signer.Address().Hex()), zap.Error(err))
			}
			return nil, &TxError{Kind: TxErrorTimeout, Reason: "receipt not available before timeout", TxHash: hash.Hex(), Err: waitCtx.Err()}
		case <-ticker.C:
		}
	}
}

// inspectTokenReceipt 检查回执状态与 Transfer 日志
// Forwarder 在内层调用失败时不会回滚, 代付模式必须找到预期的 Transfer 日志
func (e *Executor) inspectTokenReceipt(token *contract.Token, req *TransferRequest, receipt *types.Receipt) []ReceiptFailure {
	hash := receipt.TxHash.Hex()
	if receipt.Status != types.ReceiptStatusSuccessful {
		return []ReceiptFailure{{TxHash: hash, Reason: "token transfer reverted"}}
	}
	if !e.Delegated() {
		return nil
	}

	for _, l := range receipt.Logs {
		if l.Address != token.Address() {
			continue
		}
		evt, err := token.ParseTransfer(l)
		if err != nil {
			continue
		}
		if evt.To == req.Receiver && evt.Value.Cmp(req.Amount) == 0 {
			return nil
		}
	}
	return []ReceiptFailure{{TxHash: hash, Reason: "forwarded transfer call failed"}}
}
