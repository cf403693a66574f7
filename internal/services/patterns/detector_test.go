package patterns

import (
	"context"
	"errors"
	"testing"
	"time"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 14:00 UTC, inside the activity window
var now = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

type fixture struct {
	records   *repository.MemoryRecordsStore
	baselines *repository.MemoryBaselineStore
	d         *Detector
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		records:   repository.NewMemoryRecordsStore(),
		baselines: repository.NewMemoryBaselineStore(),
	}
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	f.d = NewDetector(f.records, f.baselines, nil, opts...)
	return f
}

// healthy seeds records so that no check fires.
func (f *fixture) healthy(userID string) {
	f.records.PutActivity(userID, models.ActivityRecord{Day: now, Steps: 9000, RecordedAt: now.Add(-time.Hour)})
	f.records.PutSleep(userID, models.SleepRecord{Start: now.Add(-14 * time.Hour), End: now.Add(-6 * time.Hour), DurationHours: 8})
	f.records.PutSync(userID, now.Add(-2*time.Hour))
}

func TestSleepScenarioFiftyHours(t *testing.T) {
	f := newFixture()
	end := now.Add(-50 * time.Hour)
	f.records.PutSleep("u1", models.SleepRecord{Start: end.Add(-7 * time.Hour), End: end})

	pb, err := f.d.CheckSleep(context.Background(), "u1", now)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, models.PatternNoSleepData, pb.PatternType)
	assert.Equal(t, models.SeverityMedium, pb.Severity)
	assert.Equal(t, 2, pb.DaysMissed)
	require.NotNil(t, pb.LastOccurrence)
	assert.Equal(t, end, *pb.LastOccurrence)
}

func TestSleepNeverRecorded(t *testing.T) {
	f := newFixture()
	pb, err := f.d.CheckSleep(context.Background(), "u1", now)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, models.NeverObservedDays, pb.DaysMissed)
	assert.Nil(t, pb.LastOccurrence)
}

func TestSleepRecentIsFine(t *testing.T) {
	f := newFixture()
	f.records.PutSleep("u1", models.SleepRecord{End: now.Add(-47 * time.Hour)})
	pb, err := f.d.CheckSleep(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestSyncGap(t *testing.T) {
	cases := []struct {
		name string
		ago  time.Duration
		sev  models.Severity
		days int
	}{
		{"80 hours", 80 * time.Hour, models.SeverityCritical, 3},
		{"exactly 72 hours", 72 * time.Hour, models.SeverityCritical, 3},
		{"60 hours", 60 * time.Hour, models.SeverityHigh, 2},
		{"exactly 48 hours", 48 * time.Hour, models.SeverityHigh, 2},
		{"47 hours", 47 * time.Hour, "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.records.PutSync("u1", now.Add(-tc.ago))
			pb, err := f.d.CheckSync(context.Background(), "u1", now)
			require.NoError(t, err)
			if tc.sev == "" {
				assert.Nil(t, pb)
				return
			}
			require.NotNil(t, pb)
			assert.Equal(t, models.PatternSyncGap, pb.PatternType)
			assert.Equal(t, tc.sev, pb.Severity)
			assert.Equal(t, tc.days, pb.DaysMissed)
		})
	}
}

func TestSyncNeverSynced(t *testing.T) {
	f := newFixture()
	pb, err := f.d.CheckSync(context.Background(), "u1", now)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, models.SeverityInfo, pb.Severity)
	assert.Equal(t, 999, pb.DaysMissed)
}

func TestMedicationMissed(t *testing.T) {
	confirmed := now.Add(-time.Hour)
	f := newFixture()
	f.records.AddDose("u1", models.MedicationDose{ID: "d1", Name: "metformin", ScheduledAt: now.Add(-3 * time.Hour)})
	f.records.AddDose("u1", models.MedicationDose{ID: "d2", Name: "metformin", ScheduledAt: now.Add(-2 * time.Hour), ConfirmedAt: &confirmed})
	f.records.AddDose("u1", models.MedicationDose{ID: "d3", Name: "metformin", ScheduledAt: now.Add(-30 * time.Hour)})
	f.records.AddDose("u1", models.MedicationDose{ID: "d4", Name: "metformin", ScheduledAt: now.Add(2 * time.Hour)})

	pb, err := f.d.CheckMedication(context.Background(), "u1", now)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, models.PatternMedicationMissed, pb.PatternType)
	assert.Equal(t, models.SeverityMedium, pb.Severity)
	assert.Zero(t, pb.DaysMissed)

	f.records.AddDose("u1", models.MedicationDose{ID: "d5", Name: "lisinopril", ScheduledAt: now.Add(-5 * time.Hour)})
	pb, err = f.d.CheckMedication(context.Background(), "u1", now)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, models.SeverityHigh, pb.Severity)
	assert.Equal(t, now.Add(-3*time.Hour), *pb.LastOccurrence)
}

func TestMedicationNoneMissed(t *testing.T) {
	f := newFixture()
	pb, err := f.d.CheckMedication(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestActivityOutsideWindow(t *testing.T) {
	f := newFixture()
	// no records at all, but 22:00 local is outside the window
	late := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	pb, err := f.d.CheckActivity(context.Background(), "u1", late)
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestActivityUsesUserZone(t *testing.T) {
	f := newFixture()
	// 14:00 UTC is 23:00 in Tokyo
	tokyo := time.FixedZone("JST", 9*3600)
	f.records.SetLocation("u1", tokyo)
	pb, err := f.d.CheckActivity(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestActivityNoData(t *testing.T) {
	f := newFixture()
	f.records.PutActivity("u1", models.ActivityRecord{Day: now.AddDate(0, 0, -2), Steps: 7000, RecordedAt: now.Add(-30 * time.Hour)})
	pb, err := f.d.CheckActivity(context.Background(), "u1", now)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, models.PatternNoActivityData, pb.PatternType)
	assert.Equal(t, models.SeverityMedium, pb.Severity)
	assert.Equal(t, 1, pb.DaysMissed)
}

func TestActivityLow(t *testing.T) {
	f := newFixture()
	f.baselines.Put(models.Baseline{UserID: "u1", MetricType: models.MetricSteps, Value: 9600, SampleCount: 20})
	// 14h elapsed: expected 5600, threshold 1680
	f.records.PutActivity("u1", models.ActivityRecord{Day: now, Steps: 1500, RecordedAt: now.Add(-10 * time.Minute)})

	pb, err := f.d.CheckActivity(context.Background(), "u1", now)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, models.PatternLowActivity, pb.PatternType)
	assert.Equal(t, models.SeverityHigh, pb.Severity)

	f.records.PutActivity("u1", models.ActivityRecord{Day: now, Steps: 1700, RecordedAt: now.Add(-5 * time.Minute)})
	pb, err = f.d.CheckActivity(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestActivityLowIgnoresYesterdaysTotal(t *testing.T) {
	f := newFixture()
	tokyo := time.FixedZone("JST", 9*3600)
	f.records.SetLocation("u1", tokyo)
	f.baselines.Put(models.Baseline{UserID: "u1", MetricType: models.MetricSteps, Value: 9600, SampleCount: 20})
	// 12:00 on the 2nd in Tokyo; the 1st's total synced at 00:30 local today
	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, tokyo)
	f.records.PutActivity("u1", models.ActivityRecord{
		Day:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Steps:      12000,
		RecordedAt: time.Date(2026, 3, 2, 0, 30, 0, 0, tokyo),
	})

	pb, err := f.d.CheckActivity(context.Background(), "u1", noon)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, models.PatternLowActivity, pb.PatternType)
	assert.Equal(t, models.SeverityHigh, pb.Severity)
	assert.Contains(t, pb.Description, "Only 0 steps")
}

func TestActivityTodayInWestZone(t *testing.T) {
	f := newFixture()
	ny := time.FixedZone("EST", -5*3600)
	f.records.SetLocation("u1", ny)
	f.baselines.Put(models.Baseline{UserID: "u1", MetricType: models.MetricSteps, Value: 9600, SampleCount: 20})
	// 09:00 in New York; a DATE column comes back as UTC midnight
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, ny)
	f.records.PutActivity("u1", models.ActivityRecord{
		Day:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Steps:      4000,
		RecordedAt: at.Add(-15 * time.Minute),
	})

	pb, err := f.d.CheckActivity(context.Background(), "u1", at)
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestActivityLowNeedsMatureBaseline(t *testing.T) {
	f := newFixture()
	f.baselines.Put(models.Baseline{UserID: "u1", MetricType: models.MetricSteps, Value: 9600, SampleCount: 3})
	f.records.PutActivity("u1", models.ActivityRecord{Day: now, Steps: 10, RecordedAt: now.Add(-10 * time.Minute)})

	pb, err := f.d.CheckActivity(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestDetectHealthyUser(t *testing.T) {
	f := newFixture()
	f.healthy("u1")
	breaks, err := f.d.Detect(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, breaks)
}

func TestDetectIsStable(t *testing.T) {
	f := newFixture()
	f.records.PutSync("u1", now.Add(-80*time.Hour))
	f.baselines.Put(models.Baseline{UserID: "u1", MetricType: models.MetricSteps, Value: 9600, SampleCount: 20})

	first, err := f.d.Detect(context.Background(), "u1")
	require.NoError(t, err)
	second, err := f.d.Detect(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// activity, sleep, sync in check order
	require.Len(t, first, 3)
	assert.Equal(t, models.PatternNoActivityData, first[0].PatternType)
	assert.Equal(t, models.PatternNoSleepData, first[1].PatternType)
	assert.Equal(t, models.PatternSyncGap, first[2].PatternType)

	b, err := f.baselines.Get(context.Background(), "u1", models.MetricSteps)
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.Version)
}

type brokenSleep struct{ *repository.MemoryRecordsStore }

func (brokenSleep) LatestSleep(context.Context, string) (*models.SleepRecord, error) {
	return nil, errors.New("timeout")
}

func TestDetectIsolatesFailures(t *testing.T) {
	records := repository.NewMemoryRecordsStore()
	records.PutSync("u1", now.Add(-80*time.Hour))
	d := NewDetector(brokenSleep{records}, repository.NewMemoryBaselineStore(), nil, WithClock(func() time.Time { return now }))

	breaks, err := d.Detect(context.Background(), "u1")
	require.NoError(t, err)
	types := make([]string, 0, len(breaks))
	for _, b := range breaks {
		types = append(types, b.PatternType)
	}
	assert.Equal(t, []string{models.PatternNoActivityData, models.PatternSyncGap}, types)
}
