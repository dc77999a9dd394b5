// Package escrow computes commission and payment breakdowns. Everything
// here is pure and idempotent; the one call that matters happens at quote
// acceptance, fixing the job's payment for good.
package escrow

import (
	"math"

	"servifix/models"
)

// Commission percentages by technician membership tier.
var tierCommissionPct = map[string]float64{
	models.TierBasic:   12,
	models.TierPro:     8,
	models.TierPremium: 5,
}

const (
	// UrgentCommissionPct overrides the tier table on emergency work.
	UrgentCommissionPct float64 = 20
	// GuaranteeFeePct is charged on top when the client opts in.
	GuaranteeFeePct float64 = 3

	urgentMultiplier    = 2.0
	immediateMultiplier = 1.2
)

// Options drives a breakdown computation.
type Options struct {
	Urgent         bool
	Immediate      bool
	WithGuarantee  bool
	MembershipTier string
}

// Breakdown is the full money split for one job's escrow.
type Breakdown struct {
	Price           float64
	CommissionPct   float64
	Commission      float64
	GuaranteeFee    float64
	NetToTechnician float64
}

// Compute derives the breakdown from a base price. Urgent work doubles the
// price and pins the commission at the urgent rate; immediate (non-urgent)
// work carries a 20% surcharge but keeps the tier commission.
func Compute(basePrice float64, opts Options) Breakdown {
	price := basePrice
	switch {
	case opts.Urgent:
		price *= urgentMultiplier
	case opts.Immediate:
		price *= immediateMultiplier
	}

	commissionPct := UrgentCommissionPct
	if !opts.Urgent {
		pct, ok := tierCommissionPct[opts.MembershipTier]
		if !ok {
			pct = tierCommissionPct[models.TierBasic]
		}
		commissionPct = pct
	}

	commission := price * commissionPct / 100

	guaranteeFee := 0.0
	if opts.WithGuarantee {
		guaranteeFee = price * GuaranteeFeePct / 100
	}

	return Breakdown{
		Price:           round2(price),
		CommissionPct:   commissionPct,
		Commission:      round2(commission),
		GuaranteeFee:    round2(guaranteeFee),
		NetToTechnician: round2(price - commission),
	}
}

// NewEscrowPayment builds the job's embedded payment from a breakdown.
func NewEscrowPayment(b Breakdown, withGuarantee bool) models.EscrowPayment {
	status := models.PaymentPending
	if withGuarantee {
		// A guarantee keeps escrow retained until explicit approval.
		status = models.PaymentRetained
	}
	return models.EscrowPayment{
		Amount:          b.Price,
		CommissionPct:   b.CommissionPct,
		Commission:      b.Commission,
		NetToTechnician: b.NetToTechnician,
		WithGuarantee:   withGuarantee,
		GuaranteeFee:    b.GuaranteeFee,
		Status:          status,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
