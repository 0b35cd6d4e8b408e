package goals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetinsights/internal/models"
	"budgetinsights/internal/testutil"
)

func deadline(s string) *time.Time {
	d := testutil.Day(s)
	return &d
}

func TestProgress(t *testing.T) {
	now := testutil.Day("2024-03-01")

	tests := []struct {
		name         string
		goal         models.SavingsGoal
		savings      string
		wantPct      float64
		wantRemain   string
		wantRequired string
		complete     bool
		overdue      bool
		onTrack      bool
	}{
		{
			name:         "on track",
			goal:         models.SavingsGoal{TargetAmount: testutil.Dec("1000"), CurrentAmount: testutil.Dec("400"), Deadline: deadline("2024-08-28")},
			savings:      "150",
			wantPct:      40,
			wantRemain:   "600",
			wantRequired: "100",
			onTrack:      true,
		},
		{
			name:         "behind",
			goal:         models.SavingsGoal{TargetAmount: testutil.Dec("1000"), CurrentAmount: testutil.Dec("400"), Deadline: deadline("2024-08-28")},
			savings:      "99.99",
			wantPct:      40,
			wantRemain:   "600",
			wantRequired: "100",
		},
		{
			name:         "reached",
			goal:         models.SavingsGoal{TargetAmount: testutil.Dec("500"), CurrentAmount: testutil.Dec("650"), Deadline: deadline("2024-01-01")},
			savings:      "0",
			wantPct:      100,
			wantRemain:   "0",
			wantRequired: "0",
			complete:     true,
			onTrack:      true,
		},
		{
			name:         "missed",
			goal:         models.SavingsGoal{TargetAmount: testutil.Dec("500"), CurrentAmount: testutil.Dec("100"), Deadline: deadline("2024-02-29")},
			savings:      "1000",
			wantPct:      20,
			wantRemain:   "400",
			wantRequired: "400",
			overdue:      true,
		},
		{
			name:         "due within a month",
			goal:         models.SavingsGoal{TargetAmount: testutil.Dec("500"), CurrentAmount: testutil.Dec("100"), Deadline: deadline("2024-03-10")},
			savings:      "400",
			wantPct:      20,
			wantRemain:   "400",
			wantRequired: "400",
			onTrack:      true,
		},
		{
			name:         "no deadline",
			goal:         models.SavingsGoal{TargetAmount: testutil.Dec("200"), CurrentAmount: testutil.Dec("50")},
			savings:      "10",
			wantPct:      25,
			wantRemain:   "150",
			wantRequired: "0",
			onTrack:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Progress([]models.SavingsGoal{tt.goal}, testutil.Dec(tt.savings), now)
			require.Len(t, got, 1)
			p := got[0]
			assert.InDelta(t, tt.wantPct, p.PercentComplete, 1e-9)
			testutil.AssertDecimal(t, tt.wantRemain, p.Remaining)
			testutil.AssertDecimal(t, tt.wantRequired, p.RequiredMonthly)
			assert.Equal(t, tt.complete, p.Complete)
			assert.Equal(t, tt.overdue, p.Overdue)
			assert.Equal(t, tt.onTrack, p.OnTrack)
		})
	}
}

func TestProgressMonthsLeft(t *testing.T) {
	now := testutil.Day("2024-03-01")
	got := Progress([]models.SavingsGoal{
		{TargetAmount: testutil.Dec("10"), Deadline: deadline("2024-03-31")},
		{TargetAmount: testutil.Dec("10"), Deadline: deadline("2024-02-01")},
		{TargetAmount: testutil.Dec("10")},
	}, testutil.Dec("1"), now)

	require.NotNil(t, got[0].MonthsLeft)
	assert.Equal(t, 1.0, *got[0].MonthsLeft)
	require.NotNil(t, got[1].MonthsLeft)
	assert.Equal(t, 0.0, *got[1].MonthsLeft)
	assert.Nil(t, got[2].MonthsLeft)
}

func TestZeroTargetIsComplete(t *testing.T) {
	got := Progress([]models.SavingsGoal{{}}, testutil.Dec("0"), testutil.Day("2024-03-01"))
	require.Len(t, got, 1)
	assert.True(t, got[0].Complete)
	assert.Equal(t, 100.0, got[0].PercentComplete)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "car", Key(models.SavingsGoal{ID: "car"}, 3))
	assert.Equal(t, "3", Key(models.SavingsGoal{}, 3))
}
