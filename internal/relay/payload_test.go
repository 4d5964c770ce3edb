package relay

import (
	"bytes"
	"math/big"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/ethereum/go-ethereum/common"
)

func testPayloadConfig() *payloadConfig {
	return &payloadConfig{
		chainID:          137,
		mintContract:     common.HexToAddress("0x00000000000000000000000000000000deadbeef"),
		gasLimit:         120_000,
		gasPrice:         big.NewInt(30_000_000_000),
		amountMultiplier: big.NewInt(1_000_000_000_000),
	}
}

func TestEncodeMintCall(t *testing.T) {
	t.Parallel()

	winner := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	amount := big.NewInt(1_000_000)

	data := encodeMintCall(winner, amount)

	if len(data) != 4+32+32 {
		t.Fatalf("call data length = %d, want 68", len(data))
	}

	// keccak256("mint(address,uint256)")[:4] = 0x40c10f19
	wantSelector := []byte{0x40, 0xc1, 0x0f, 0x19}
	if !bytes.Equal(data[:4], wantSelector) {
		t.Errorf("selector = %x, want %x", data[:4], wantSelector)
	}

	if !bytes.Equal(data[4:36], common.LeftPadBytes(winner.Bytes(), 32)) {
		t.Errorf("winner argument mismatch: %x", data[4:36])
	}
	if !bytes.Equal(data[36:68], common.LeftPadBytes(amount.Bytes(), 32)) {
		t.Errorf("amount argument mismatch: %x", data[36:68])
	}
}

func TestBuildMintInstruction(t *testing.T) {
	t.Parallel()

	cfg := testPayloadConfig()
	winner := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

	raw, err := buildMintInstruction(cfg, winner, 5_000_000, 7)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var instr MintInstruction
	if err := json.Unmarshal(raw, &instr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if instr.ChainID != 137 {
		t.Errorf("chain id = %d, want 137", instr.ChainID)
	}
	if instr.To != cfg.mintContract {
		t.Errorf("to = %s, want %s", instr.To.Hex(), cfg.mintContract.Hex())
	}
	if instr.Nonce != 7 {
		t.Errorf("nonce = %d, want 7", instr.Nonce)
	}
	if instr.GasLimit != 120_000 {
		t.Errorf("gas limit = %d, want 120000", instr.GasLimit)
	}

	// 5_000_000 escrow units at 1e12 multiplier.
	wantAmount := new(big.Int).Mul(big.NewInt(5_000_000), cfg.amountMultiplier)
	gotAmount := new(big.Int).SetBytes(instr.Data[36:68])
	if gotAmount.Cmp(wantAmount) != 0 {
		t.Errorf("encoded amount = %s, want %s", gotAmount, wantAmount)
	}
}

func TestBuildSignedEnvelope(t *testing.T) {
	t.Parallel()

	cfg := testPayloadConfig()
	winner := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	payload, err := buildMintInstruction(cfg, winner, 1_000_000, 0)
	if err != nil {
		t.Fatalf("build instruction: %v", err)
	}

	sig := bytes.Repeat([]byte{0xab}, 65)
	raw, err := buildSignedEnvelope(payload, sig)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}

	var env SignedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(env.Signature, sig) {
		t.Errorf("signature round trip mismatch")
	}

	var instr MintInstruction
	if err := json.Unmarshal(env.Transaction, &instr); err != nil {
		t.Fatalf("embedded transaction should stay decodable: %v", err)
	}
	if instr.Nonce != 0 {
		t.Errorf("nonce = %d, want 0", instr.Nonce)
	}
}
