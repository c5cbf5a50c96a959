package monitor

import (
	"context"
	"time"

	"github.com/tagwatch/tagwatch/internal/database/types"
	"go.uber.org/zap"
)

// detectSurges runs the day-over-day volume detector for every hashtag group
// of the campaign. Returns how many surge alerts were recorded this pass.
func (w *Worker) detectSurges(ctx context.Context, campaign *types.Campaign) (int, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -w.config.SurgeWindowDays)

	alerts := 0

	for _, group := range campaign.HashtagGroups {
		rows, err := w.stores.Posts.DailyActivity(ctx, campaign.ID, group, since)
		if err != nil {
			return alerts, err
		}

		days := fillDays(rows, since, now)

		surge, ok := evaluateSurge(days, w.config.SurgeThreshold)
		if !ok {
			continue
		}

		activity := &types.HashtagActivity{
			Hashtags:       group,
			Date:           surge.Day,
			CampaignID:     campaign.ID,
			PostCount:      surge.PostCount,
			UniqueAccounts: surge.UniqueAccounts,
			IsSurge:        true,
		}

		if err := w.stores.Activity.Upsert(ctx, activity); err != nil {
			return alerts, err
		}

		alerts++
		w.metrics.SurgesDetected.Inc()

		w.logger.Info("Surge detected",
			zap.String("campaign", campaign.Name),
			zap.Strings("group", group),
			zap.Time("day", surge.Day),
			zap.Int("postCount", surge.PostCount))
	}

	return alerts, nil
}

// evaluateSurge applies the surge rule to an ascending, gap-free daily
// series: only the two newest days are compared, and a surge needs the
// newest day at or above the threshold after a completely silent previous
// day. Gradual ramps never fire.
func evaluateSurge(days []types.DailyActivity, threshold int) (types.DailyActivity, bool) {
	if len(days) < 2 {
		return types.DailyActivity{}, false
	}

	newest := days[len(days)-1]
	previous := days[len(days)-2]

	if newest.PostCount >= threshold && previous.PostCount == 0 {
		return newest, true
	}

	return types.DailyActivity{}, false
}

// fillDays expands a sparse ascending daily series into one entry per
// calendar day from start through end. Days without posts become zero-count
// entries so the surge comparison sees silence instead of a missing row.
func fillDays(days []types.DailyActivity, start, end time.Time) []types.DailyActivity {
	byDay := make(map[time.Time]types.DailyActivity, len(days))
	for _, d := range days {
		byDay[dateOf(d.Day)] = d
	}

	filled := make([]types.DailyActivity, 0, len(byDay))

	for day := dateOf(start); !day.After(dateOf(end)); day = day.AddDate(0, 0, 1) {
		if row, ok := byDay[day]; ok {
			row.Day = day
			filled = append(filled, row)
		} else {
			filled = append(filled, types.DailyActivity{Day: day})
		}
	}

	return filled
}

// dateOf truncates a timestamp to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
