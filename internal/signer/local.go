package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// LocalSigner signs payloads with a locally held secp256k1 key. It stands in
// for the external threshold-signing service in dev mode and tests; the
// signature format matches what an MPC service returns (65-byte r||s||v over
// the keccak256 digest of the payload).
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewEphemeralSigner creates a LocalSigner with a freshly generated key.
// Dev mode only: payloads signed with it cannot be accepted by any deployed
// mint contract.
func NewEphemeralSigner() (*LocalSigner, error) {
	pk, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &LocalSigner{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// NewLocalSigner creates a LocalSigner from a hex-encoded private key.
func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &LocalSigner{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the address derived from the signing key.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// Sign hashes the payload with keccak256 and signs the digest. The
// derivation path is accepted for interface compatibility; a local key has
// nothing to derive.
func (s *LocalSigner) Sign(ctx context.Context, payload []byte, derivationPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest := ethcrypto.Keccak256(payload)
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}

	// go-ethereum returns v in {0,1}; the relay target expects {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return sig, nil
}
