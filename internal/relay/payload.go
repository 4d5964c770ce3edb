package relay

import (
	"fmt"
	"math/big"

	json "github.com/goccy/go-json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// mintSelector is the 4-byte function selector of mint(address,uint256) on
// the payout token contract.
var mintSelector = ethcrypto.Keccak256([]byte("mint(address,uint256)"))[:4]

// MintInstruction is the unsigned payout instruction addressed to the second
// ledger. Data carries the ABI-encoded mint call.
type MintInstruction struct {
	ChainID  uint64        `json:"chain_id"`
	To       common.Address `json:"to"`
	Data     hexutil.Bytes `json:"data"`
	Nonce    uint64        `json:"nonce"`
	GasLimit uint64        `json:"gas_limit"`
	GasPrice *big.Int      `json:"gas_price"`
}

// SignedEnvelope pairs the serialized instruction with its threshold
// signature. This is what the relay service submits to the second ledger.
type SignedEnvelope struct {
	Transaction json.RawMessage `json:"transaction"`
	Signature   hexutil.Bytes   `json:"signature"`
}

// encodeMintCall ABI-encodes mint(winner, amount): the selector followed by
// the two arguments left-padded to 32 bytes.
func encodeMintCall(winner common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+64)
	data = append(data, mintSelector...)
	data = append(data, common.LeftPadBytes(winner.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// buildMintInstruction assembles and serializes the payout instruction for a
// winner. The escrow amount is converted into the second ledger's token unit
// with the configured multiplier before encoding.
func buildMintInstruction(cfg *payloadConfig, winner common.Address, amount uint64, nonce uint64) ([]byte, error) {
	converted := new(big.Int).Mul(
		new(big.Int).SetUint64(amount),
		cfg.amountMultiplier,
	)

	instr := MintInstruction{
		ChainID:  cfg.chainID,
		To:       cfg.mintContract,
		Data:     encodeMintCall(winner, converted),
		Nonce:    nonce,
		GasLimit: cfg.gasLimit,
		GasPrice: cfg.gasPrice,
	}

	raw, err := json.Marshal(instr)
	if err != nil {
		return nil, fmt.Errorf("marshal mint instruction: %w", err)
	}
	return raw, nil
}

// buildSignedEnvelope serializes {transaction, signature} once the threshold
// signature has arrived.
func buildSignedEnvelope(payload, signature []byte) ([]byte, error) {
	env := SignedEnvelope{
		Transaction: json.RawMessage(payload),
		Signature:   signature,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal signed envelope: %w", err)
	}
	return raw, nil
}

// payloadConfig carries the second-ledger parameters used to build
// instructions.
type payloadConfig struct {
	chainID          uint64
	mintContract     common.Address
	gasLimit         uint64
	gasPrice         *big.Int
	amountMultiplier *big.Int
}
