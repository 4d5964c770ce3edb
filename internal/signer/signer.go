// Package signer provides the threshold-signing client used to authorize
// cross-chain payout instructions. Production deployments point this at an
// MPC signing service; the local implementation signs with a single
// secp256k1 key for development and tests.
package signer

import "context"

// Signer signs a payload under a fixed key-derivation path. Sign is called
// from a background goroutine by the relay coordinator; implementations may
// block until the signing service responds.
type Signer interface {
	Sign(ctx context.Context, payload []byte, derivationPath string) ([]byte, error)
}
