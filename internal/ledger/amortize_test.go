package ledger_test

import (
	"testing"

	"github.com/dkovalev/ledgerkeep/internal/ledger"
)

func TestAmortize(t *testing.T) {
	tests := []struct {
		name         string
		total        float64
		installments int
		wantPer      string
		wantResidual string
		wantFinal    string
	}{
		{
			name:         "even split",
			total:        1200,
			installments: 12,
			wantPer:      "100",
			wantResidual: "0",
			wantFinal:    "100",
		},
		{
			name:         "rounding down leaves residual",
			total:        100,
			installments: 3,
			wantPer:      "33.33",
			wantResidual: "0.01",
			wantFinal:    "33.34",
		},
		{
			name:         "rounding up gives negative residual",
			total:        100,
			installments: 6,
			wantPer:      "16.67",
			wantResidual: "-0.02",
			wantFinal:    "16.65",
		},
		{
			name:         "single installment",
			total:        49.99,
			installments: 1,
			wantPer:      "49.99",
			wantResidual: "0",
			wantFinal:    "49.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ledger.Amortize(tt.total, tt.installments)
			if err != nil {
				t.Fatalf("Amortize failed: %v", err)
			}
			if got := s.PerInstallment.String(); got != tt.wantPer {
				t.Errorf("per installment = %s, want %s", got, tt.wantPer)
			}
			if got := s.Residual.String(); got != tt.wantResidual {
				t.Errorf("residual = %s, want %s", got, tt.wantResidual)
			}
			if got := s.FinalPayment.String(); got != tt.wantFinal {
				t.Errorf("final payment = %s, want %s", got, tt.wantFinal)
			}
		})
	}
}

func TestAmortize_InvalidCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := ledger.Amortize(100, n); err == nil {
			t.Errorf("Amortize(100, %d) succeeded, want error", n)
		}
	}
}

func TestSchedulePerInstallmentFloat(t *testing.T) {
	s, err := ledger.Amortize(1200, 12)
	if err != nil {
		t.Fatalf("Amortize failed: %v", err)
	}
	if got := s.PerInstallmentFloat(); got != 100 {
		t.Errorf("PerInstallmentFloat = %v, want 100", got)
	}
}
