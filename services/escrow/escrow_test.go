package escrow

import (
	"testing"

	"servifix/models"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		base     float64
		opts     Options
		want     Breakdown
	}{
		{
			name: "urgent doubles price and pins 20% commission",
			base: 100,
			opts: Options{Urgent: true},
			want: Breakdown{Price: 200, CommissionPct: 20, Commission: 40, NetToTechnician: 160},
		},
		{
			name: "premium tier commission",
			base: 100,
			opts: Options{MembershipTier: models.TierPremium},
			want: Breakdown{Price: 100, CommissionPct: 5, Commission: 5, NetToTechnician: 95},
		},
		{
			name: "pro tier commission",
			base: 100,
			opts: Options{MembershipTier: models.TierPro},
			want: Breakdown{Price: 100, CommissionPct: 8, Commission: 8, NetToTechnician: 92},
		},
		{
			name: "unknown tier falls back to basic",
			base: 100,
			opts: Options{MembershipTier: "gold"},
			want: Breakdown{Price: 100, CommissionPct: 12, Commission: 12, NetToTechnician: 88},
		},
		{
			name: "immediate surcharge keeps tier commission",
			base: 100,
			opts: Options{Immediate: true, MembershipTier: models.TierBasic},
			want: Breakdown{Price: 120, CommissionPct: 12, Commission: 14.4, NetToTechnician: 105.6},
		},
		{
			name: "urgent wins over immediate",
			base: 50,
			opts: Options{Urgent: true, Immediate: true, MembershipTier: models.TierPremium},
			want: Breakdown{Price: 100, CommissionPct: 20, Commission: 20, NetToTechnician: 80},
		},
		{
			name: "guarantee fee is 3% of the adjusted price",
			base: 100,
			opts: Options{Urgent: true, WithGuarantee: true},
			want: Breakdown{Price: 200, CommissionPct: 20, Commission: 40, GuaranteeFee: 6, NetToTechnician: 160},
		},
		{
			name: "rounding to two decimals",
			base: 33.33,
			opts: Options{MembershipTier: models.TierPro},
			want: Breakdown{Price: 33.33, CommissionPct: 8, Commission: 2.67, NetToTechnician: 30.66},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.base, tt.opts)
			if got != tt.want {
				t.Errorf("Compute(%v, %+v) = %+v, want %+v", tt.base, tt.opts, got, tt.want)
			}
		})
	}
}

func TestComputeIdempotent(t *testing.T) {
	opts := Options{Urgent: true, WithGuarantee: true}
	first := Compute(75.50, opts)
	second := Compute(75.50, opts)
	if first != second {
		t.Errorf("Compute is not idempotent: %+v != %+v", first, second)
	}
}

func TestNewEscrowPayment(t *testing.T) {
	b := Compute(100, Options{MembershipTier: models.TierPremium})

	p := NewEscrowPayment(b, false)
	if p.Status != models.PaymentPending {
		t.Errorf("payment without guarantee should start pending, got %s", p.Status)
	}
	if p.Amount != 100 || p.NetToTechnician != 95 {
		t.Errorf("unexpected payment amounts: %+v", p)
	}

	withG := NewEscrowPayment(Compute(100, Options{MembershipTier: models.TierPremium, WithGuarantee: true}), true)
	if withG.Status != models.PaymentRetained {
		t.Errorf("payment with guarantee should start retained, got %s", withG.Status)
	}
	if withG.GuaranteeFee != 3 {
		t.Errorf("guarantee fee = %v, want 3", withG.GuaranteeFee)
	}
}
