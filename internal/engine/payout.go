package engine

import "math/big"

// Basis-point denominator and fee cap (10%).
const (
	BasisPointsDenominator = 10000
	MaxFeeBasisPoints      = 1000
)

// Fee returns the platform fee taken from the losing pool, floor division.
func Fee(losingPool, feeBasisPoints uint64) uint64 {
	fee := new(big.Int).Mul(
		new(big.Int).SetUint64(losingPool),
		new(big.Int).SetUint64(feeBasisPoints),
	)
	fee.Div(fee, big.NewInt(BasisPointsDenominator))
	return fee.Uint64()
}

// Payout computes a winner's payout with exact integer arithmetic: the full
// stake back plus a share of the losing pool (net of fee) proportional to
// the stake's share of the winning pool. Floor division leaves at most
// winningPool-1 smallest units of dust unclaimed across all claims on a
// round; that bounded leak is part of the contract and must reproduce
// bit-for-bit.
func Payout(stake, winningPool, losingPool, feeBasisPoints uint64) uint64 {
	if winningPool == 0 {
		return 0
	}

	netLosing := losingPool - Fee(losingPool, feeBasisPoints)

	share := new(big.Int).Mul(
		new(big.Int).SetUint64(stake),
		new(big.Int).SetUint64(netLosing),
	)
	share.Div(share, new(big.Int).SetUint64(winningPool))

	return stake + share.Uint64()
}
