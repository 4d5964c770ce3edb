package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoundsOpened counts rounds created.
	RoundsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_rounds_opened_total",
		Help: "Total number of prediction rounds opened",
	})

	// RoundsSettled counts rounds settled.
	RoundsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_rounds_settled_total",
		Help: "Total number of prediction rounds settled",
	})

	// PredictionsPlaced counts accepted predictions by side.
	PredictionsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictpool_predictions_placed_total",
		Help: "Total number of predictions placed",
	}, []string{"side"})

	// VolumeTotal accumulates accepted stakes in the ledger's smallest
	// unit.
	VolumeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_stake_volume_total",
		Help: "Total staked volume in the ledger's smallest unit",
	})

	// ClaimsPaid counts successful winnings claims.
	ClaimsPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_claims_paid_total",
		Help: "Total number of winnings claims paid out",
	})

	// PayoutsTotal accumulates paid winnings in the ledger's smallest
	// unit.
	PayoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_payouts_total",
		Help: "Total payouts in the ledger's smallest unit",
	})

	// ClaimTransferFailures counts claims aborted by a failed ledger
	// transfer. The prediction stays claimable.
	ClaimTransferFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_claim_transfer_failures_total",
		Help: "Total number of claims aborted because the payout transfer failed",
	})

	// FeesCollected accumulates platform fees accrued at settlement.
	FeesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_fees_collected_total",
		Help: "Total platform fees accrued from losing pools",
	})

	// PausedGauge is 1 while the pause gate is set.
	PausedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictpool_paused",
		Help: "Whether the platform pause gate is set (1=paused)",
	})
)
