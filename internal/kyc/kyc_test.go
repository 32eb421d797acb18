package kyc

import (
	"testing"

	"piron-pools-go/internal/models"

	"github.com/shopspring/decimal"
)

func basic() Submission {
	return Submission{FirstName: "Ada", LastName: "Obi", IdType: "passport", IdNumber: "A123"}
}

func TestEvaluate(t *testing.T) {
	full := basic()
	full.City, full.Address, full.ZipCode = "Lagos", "1 Marina", "100001"

	partialAddress := basic()
	partialAddress.City = "Lagos"

	blankName := basic()
	blankName.FirstName = "   "

	tests := []struct {
		name   string
		in     Submission
		status models.KycStatus
		level  models.KycLevel
		limit  int64
	}{
		{"basic only", basic(), models.KycApproved, models.KycLevelBasic, 10000},
		{"basic and address", full, models.KycApproved, models.KycLevelEnhanced, 50000},
		{"partial address stays basic", partialAddress, models.KycApproved, models.KycLevelBasic, 10000},
		{"whitespace is missing", blankName, models.KycInProgress, models.KycLevelNone, 0},
		{"empty", Submission{}, models.KycInProgress, models.KycLevelNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.in)
			if got.Status != tt.status || got.Level != tt.level {
				t.Errorf("Evaluate = %s/%s; want %s/%s", got.Status, got.Level, tt.status, tt.level)
			}
			if !got.Limit.Equal(decimal.NewFromInt(tt.limit)) {
				t.Errorf("Limit = %s; want %d", got.Limit, tt.limit)
			}
		})
	}
}

func TestKeepHigher(t *testing.T) {
	downgraded := Evaluate(basic())

	got := KeepHigher(models.KycApproved, models.KycLevelEnhanced, EnhancedLimit, downgraded)
	if got.Level != models.KycLevelEnhanced || !got.Limit.Equal(EnhancedLimit) {
		t.Errorf("KeepHigher dropped the enhanced tier: %+v", got)
	}

	// A rejected user does not keep a stale tier
	got = KeepHigher(models.KycRejected, models.KycLevelEnhanced, EnhancedLimit, downgraded)
	if got.Level != models.KycLevelBasic {
		t.Errorf("KeepHigher kept tier for rejected user: %+v", got)
	}

	// Upgrades pass through
	got = KeepHigher(models.KycApproved, models.KycLevelNone, decimal.Zero, downgraded)
	if got.Level != models.KycLevelBasic {
		t.Errorf("KeepHigher blocked an upgrade: %+v", got)
	}
}

func TestLimitFor(t *testing.T) {
	if !LimitFor(models.KycLevelBasic).Equal(BasicLimit) || !LimitFor(models.KycLevelNone).IsZero() {
		t.Error("LimitFor mismatch")
	}
}
