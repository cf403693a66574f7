package patterns

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
	"VitalPulse/internal/domain/service"
	"VitalPulse/internal/services/anomaly"
	"VitalPulse/pkg/logger"
	"VitalPulse/pkg/util"
)

// Check names, also used as failure labels in snapshots.
const (
	CheckActivity   = "activity"
	CheckSleep      = "sleep"
	CheckMedication = "medication"
	CheckSync       = "sync"
)

const (
	activityWindow   = 24 * time.Hour
	sleepWindow      = 48 * time.Hour
	medicationWindow = 24 * time.Hour
	syncHighAfter    = 48 * time.Hour
	syncCriticalAt   = 72 * time.Hour

	lowActivityRatio = 0.3
)

var _ service.PatternBreakDetector = (*Detector)(nil)

type Options struct {
	ActivityStartHour int
	ActivityEndHour   int
	DefaultLocation   *time.Location
	Clock             func() time.Time
}

type Option func(*Options)

func WithActivityWindow(startHour, endHour int) Option {
	return func(o *Options) {
		o.ActivityStartHour = startHour
		o.ActivityEndHour = endHour
	}
}

// WithDefaultLocation sets the zone used when a user has none on file.
func WithDefaultLocation(loc *time.Location) Option {
	return func(o *Options) {
		if loc != nil {
			o.DefaultLocation = loc
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) { o.Clock = clock }
}

// Detector runs the absence checks. It only reads from its collaborators.
type Detector struct {
	records   repository.RecentRecordsProvider
	baselines repository.BaselineRepository
	log       *logger.Logger
	opts      Options
}

func NewDetector(records repository.RecentRecordsProvider, baselines repository.BaselineRepository, l *logger.Logger, opts ...Option) *Detector {
	o := Options{
		ActivityStartHour: 7,
		ActivityEndHour:   21,
		DefaultLocation:   time.UTC,
		Clock:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Detector{records: records, baselines: baselines, log: l, opts: o}
}

// Checks returns the four checks in a fixed order.
func (d *Detector) Checks() []service.PatternCheck {
	return []service.PatternCheck{
		{Name: CheckActivity, Run: d.CheckActivity},
		{Name: CheckSleep, Run: d.CheckSleep},
		{Name: CheckMedication, Run: d.CheckMedication},
		{Name: CheckSync, Run: d.CheckSync},
	}
}

// Detect runs every check concurrently. A failing check is logged and left
// out; the error is only returned when all of them fail.
func (d *Detector) Detect(ctx context.Context, userID string) ([]models.PatternBreak, error) {
	now := d.opts.Clock()
	checks := d.Checks()
	found := make([]*models.PatternBreak, len(checks))
	errs := make([]error, len(checks))

	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c service.PatternCheck) {
			defer wg.Done()
			found[i], errs[i] = c.Run(ctx, userID, now)
		}(i, c)
	}
	wg.Wait()

	out := make([]models.PatternBreak, 0, len(checks))
	failed := 0
	var lastErr error
	for i, c := range checks {
		if errs[i] != nil {
			failed++
			lastErr = errs[i]
			d.log.Warn("pattern check failed", logger.User(userID), logger.String("check", c.Name), logger.Error(errs[i]))
			continue
		}
		if found[i] != nil {
			out = append(out, *found[i])
		}
	}
	if failed == len(checks) {
		return out, fmt.Errorf("all pattern checks failed: %w", lastErr)
	}
	return out, nil
}

func (d *Detector) location(ctx context.Context, userID string) *time.Location {
	loc, err := d.records.UserLocation(ctx, userID)
	if err != nil {
		d.log.Debug("user location lookup failed, using default", logger.User(userID), logger.Error(err))
		return d.opts.DefaultLocation
	}
	if loc == nil {
		return d.opts.DefaultLocation
	}
	return loc
}

// CheckActivity only fires during waking hours in the user's zone.
func (d *Detector) CheckActivity(ctx context.Context, userID string, now time.Time) (*models.PatternBreak, error) {
	loc := d.location(ctx, userID)
	hour := now.In(loc).Hour()
	if hour < d.opts.ActivityStartHour || hour >= d.opts.ActivityEndHour {
		return nil, nil
	}

	last, err := d.records.LatestActivity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest activity: %w", err)
	}
	if last == nil || now.Sub(last.RecordedAt) > activityWindow {
		pb := &models.PatternBreak{
			PatternType: models.PatternNoActivityData,
			Description: "No activity data recorded in the last 24 hours",
			Severity:    models.SeverityMedium,
			DaysMissed:  models.NeverObservedDays,
		}
		if last != nil {
			at := last.RecordedAt
			pb.LastOccurrence = &at
			pb.DaysMissed = util.WholeDays(now.Sub(at))
		}
		return pb, nil
	}

	b, err := d.baselines.Get(ctx, userID, models.MetricSteps)
	if err != nil {
		return nil, fmt.Errorf("steps baseline: %w", err)
	}
	if b == nil || b.SampleCount < anomaly.MinSamples {
		return nil, nil
	}

	expected := b.Value / 24 * util.HoursElapsedToday(now, loc)
	var today float64
	if util.IsLocalDate(last.Day, now, loc) {
		today = last.Steps
	}
	if expected <= 0 || today >= lowActivityRatio*expected {
		return nil, nil
	}
	at := last.RecordedAt
	return &models.PatternBreak{
		PatternType:    models.PatternLowActivity,
		Description:    fmt.Sprintf("Only %.0f steps so far today, about %.0f expected by now", today, expected),
		Severity:       models.SeverityHigh,
		LastOccurrence: &at,
		DaysMissed:     0,
	}, nil
}

func (d *Detector) CheckSleep(ctx context.Context, userID string, now time.Time) (*models.PatternBreak, error) {
	last, err := d.records.LatestSleep(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest sleep: %w", err)
	}
	if last != nil && now.Sub(last.End) <= sleepWindow {
		return nil, nil
	}
	pb := &models.PatternBreak{
		PatternType: models.PatternNoSleepData,
		Description: "No sleep logged in the last 48 hours",
		Severity:    models.SeverityMedium,
		DaysMissed:  models.NeverObservedDays,
	}
	if last != nil {
		at := last.End
		pb.LastOccurrence = &at
		pb.DaysMissed = util.WholeDays(now.Sub(at))
	}
	return pb, nil
}

func (d *Detector) CheckMedication(ctx context.Context, userID string, now time.Time) (*models.PatternBreak, error) {
	doses, err := d.records.UnconfirmedDoses(ctx, userID, now.Add(-medicationWindow), now)
	if err != nil {
		return nil, fmt.Errorf("unconfirmed doses: %w", err)
	}
	var missed int
	var latest time.Time
	for _, dose := range doses {
		if dose.ConfirmedAt != nil || dose.ScheduledAt.After(now) || now.Sub(dose.ScheduledAt) > medicationWindow {
			continue
		}
		missed++
		if dose.ScheduledAt.After(latest) {
			latest = dose.ScheduledAt
		}
	}
	if missed == 0 {
		return nil, nil
	}
	sev := models.SeverityMedium
	if missed >= 2 {
		sev = models.SeverityHigh
	}
	desc := "1 scheduled medication dose was not confirmed in the last 24 hours"
	if missed > 1 {
		desc = fmt.Sprintf("%d scheduled medication doses were not confirmed in the last 24 hours", missed)
	}
	return &models.PatternBreak{
		PatternType:    models.PatternMedicationMissed,
		Description:    desc,
		Severity:       sev,
		LastOccurrence: &latest,
		DaysMissed:     0,
	}, nil
}

func (d *Detector) CheckSync(ctx context.Context, userID string, now time.Time) (*models.PatternBreak, error) {
	last, err := d.records.LastDeviceSync(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("last device sync: %w", err)
	}
	if last == nil {
		return &models.PatternBreak{
			PatternType: models.PatternSyncGap,
			Description: "No wearable device has synced yet",
			Severity:    models.SeverityInfo,
			DaysMissed:  models.NeverObservedDays,
		}, nil
	}
	gap := now.Sub(*last)
	var sev models.Severity
	switch {
	case gap >= syncCriticalAt:
		sev = models.SeverityCritical
	case gap >= syncHighAfter:
		sev = models.SeverityHigh
	default:
		return nil, nil
	}
	at := *last
	return &models.PatternBreak{
		PatternType:    models.PatternSyncGap,
		Description:    fmt.Sprintf("No device sync for %.0f hours", gap.Hours()),
		Severity:       sev,
		LastOccurrence: &at,
		DaysMissed:     util.WholeDays(gap),
	}, nil
}
