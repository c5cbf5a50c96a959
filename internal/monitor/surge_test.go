package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagwatch/tagwatch/internal/database/types"
)

func day(offset int) time.Time {
	return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestEvaluateSurge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		counts    []int
		threshold int
		want      bool
	}{
		{
			name:      "silent day then spike fires",
			counts:    []int{0, 25},
			threshold: 20,
			want:      true,
		},
		{
			name:      "spike at exact threshold fires",
			counts:    []int{0, 20},
			threshold: 20,
			want:      true,
		},
		{
			name:      "ramp from nonzero does not fire",
			counts:    []int{3, 25},
			threshold: 20,
			want:      false,
		},
		{
			name:      "spike below threshold does not fire",
			counts:    []int{0, 19},
			threshold: 20,
			want:      false,
		},
		{
			name:      "older spike is ignored",
			counts:    []int{0, 40, 5},
			threshold: 20,
			want:      false,
		},
		{
			name:      "single day never fires",
			counts:    []int{25},
			threshold: 20,
			want:      false,
		},
		{
			name:      "empty series never fires",
			counts:    nil,
			threshold: 20,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			days := make([]types.DailyActivity, len(tt.counts))
			for i, count := range tt.counts {
				days[i] = types.DailyActivity{Day: day(i), PostCount: count}
			}

			surge, fired := evaluateSurge(days, tt.threshold)
			assert.Equal(t, tt.want, fired)

			if fired {
				assert.Equal(t, days[len(days)-1].Day, surge.Day)
				assert.Equal(t, days[len(days)-1].PostCount, surge.PostCount)
			}
		})
	}
}

func TestFillDays(t *testing.T) {
	t.Parallel()

	rows := []types.DailyActivity{
		{Day: day(1), PostCount: 5, UniqueAccounts: 2},
		{Day: day(4), PostCount: 30, UniqueAccounts: 12},
	}

	filled := fillDays(rows, day(0), day(4))

	require.Len(t, filled, 5)
	assert.Equal(t, 0, filled[0].PostCount)
	assert.Equal(t, 5, filled[1].PostCount)
	assert.Equal(t, 0, filled[2].PostCount)
	assert.Equal(t, 0, filled[3].PostCount)
	assert.Equal(t, 30, filled[4].PostCount)
	assert.Equal(t, 12, filled[4].UniqueAccounts)

	for i, entry := range filled {
		assert.Equal(t, day(i), entry.Day)
	}
}

func TestDetectSurgesRecordsAlert(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)

	posts := newFakePosts()
	posts.daily[groupKey(group)] = []types.DailyActivity{
		{Day: time.Now().AddDate(0, 0, -3), PostCount: 2, UniqueAccounts: 2},
		{Day: time.Now(), PostCount: 25, UniqueAccounts: 9},
	}

	activity := &fakeActivity{}

	stores := testStores(posts)
	stores.Activity = activity

	w := testWorker(stores, &fakePool{}, testMonitorConfig())
	w.client = &fakeSearch{}

	alerts, err := w.detectSurges(t.Context(), campaign)
	require.NoError(t, err)

	require.Equal(t, 1, alerts)
	require.Len(t, activity.upserts, 1)

	recorded := activity.upserts[0]
	assert.Equal(t, []string(group), recorded.Hashtags)
	assert.Equal(t, campaign.ID, recorded.CampaignID)
	assert.Equal(t, 25, recorded.PostCount)
	assert.Equal(t, 9, recorded.UniqueAccounts)
	assert.True(t, recorded.IsSurge)
}

func TestDetectSurgesIgnoresGradualRamp(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)

	posts := newFakePosts()
	posts.daily[groupKey(group)] = []types.DailyActivity{
		{Day: time.Now().AddDate(0, 0, -1), PostCount: 3},
		{Day: time.Now(), PostCount: 25},
	}

	activity := &fakeActivity{}

	stores := testStores(posts)
	stores.Activity = activity

	w := testWorker(stores, &fakePool{}, testMonitorConfig())
	w.client = &fakeSearch{}

	alerts, err := w.detectSurges(t.Context(), campaign)
	require.NoError(t, err)

	assert.Zero(t, alerts)
	assert.Empty(t, activity.upserts)
}

// A group whose volume lives entirely on the newest day still needs a silent
// previous day inside the loaded window to fire.
func TestDetectSurgesSparseSeries(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)

	posts := newFakePosts()
	posts.daily[groupKey(group)] = []types.DailyActivity{
		{Day: time.Now(), PostCount: 40, UniqueAccounts: 20},
	}

	activity := &fakeActivity{}

	stores := testStores(posts)
	stores.Activity = activity

	w := testWorker(stores, &fakePool{}, testMonitorConfig())
	w.client = &fakeSearch{}

	alerts, err := w.detectSurges(t.Context(), campaign)
	require.NoError(t, err)

	assert.Equal(t, 1, alerts, "a missing previous day counts as silence")
}
