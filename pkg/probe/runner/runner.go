// Package runner sequences the playback checks against one browser
// session and aggregates their outcomes into a Report.
//
// Checks contain their own failures: a check that errors records FAIL and
// the run continues with the remaining checks. Only failures that happen
// before the page is open (launch, navigation) abort the run.
package runner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ysmood/gson"

	"github.com/thesyncim/vidprobe/pkg/probe/metrics"
)

// CheckNames lists every check a run performs, in execution order.
// len(Report.Tests) always equals len(CheckNames).
var CheckNames = []string{"load", "properties", "playback", "seek", "quality"}

// Session is the browser surface the runner drives. browser.Session
// satisfies it; tests substitute a scripted fake. Closing the session
// stays with the caller, which holds it for the run's lifetime.
type Session interface {
	Open(url string) error
	WaitForElement(selector string, timeout time.Duration) error
	Eval(js string) (gson.JSON, error)
	Click(selector string) error
}

// Config holds the fixed timings and assertion bounds of a run.
type Config struct {
	ReadyTimeout  time.Duration // bound on the load check's poll loop
	PollInterval  time.Duration // spacing between ready polls
	SettleDelay   time.Duration // fixed sleep after play/seek before measuring
	SeekTarget    float64       // seconds
	SeekTolerance float64       // seconds, assertion is |observed-target| < tolerance
	QualityOption string        // label of the quality option to select
}

// DefaultConfig returns the timings the checks were written against.
func DefaultConfig() Config {
	return Config{
		ReadyTimeout:  10 * time.Second,
		PollInterval:  time.Second,
		SettleDelay:   2 * time.Second,
		SeekTarget:    2.0,
		SeekTolerance: 1.0,
		QualityOption: "720p",
	}
}

// qualityMenuDelay gives the selector panel time to open before the
// option is clicked.
const qualityMenuDelay = 500 * time.Millisecond

// Runner drives one probe run. It holds the session exclusively for the
// run's lifetime; the caller remains responsible for closing it.
type Runner struct {
	session   Session
	collector *metrics.Collector
	log       *logrus.Logger
	cfg       Config

	metricsLog []metrics.StreamMetrics
}

// New creates a runner over an open session.
func New(session Session, log *logrus.Logger, cfg Config) *Runner {
	if log == nil {
		log = logrus.New()
	}
	return &Runner{
		session:   session,
		collector: metrics.New(session),
		log:       log,
		cfg:       cfg,
	}
}

// Run opens url and executes every check, regardless of individual
// failures. It returns an error only when the page cannot be opened at
// all; check failures are reported through the Report.
func (r *Runner) Run(ctx context.Context, url string) (*Report, error) {
	report := &Report{
		RunID:        uuid.NewString(),
		SourceURL:    url,
		RunTimestamp: time.Now(),
	}

	r.log.WithField("url", url).Info("opening page")
	if err := r.session.Open(url); err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	ready := r.checkLoad(ctx, report)
	r.checkProperties(report, ready)
	r.checkPlayback(ctx, report, ready)
	r.checkSeek(ctx, report, ready)
	r.checkQuality(ctx, report, ready)

	report.Metrics = r.metricsLog
	return report, nil
}

// checkLoad polls until the fixture's ready flag is set and the element
// reports enough buffered data to play. A page-reported media error or an
// expired timeout fails the check.
func (r *Runner) checkLoad(ctx context.Context, report *Report) bool {
	result := TestResult{Name: "load", Status: StatusFail}
	defer func() { report.Tests = append(report.Tests, result) }()

	if err := r.session.WaitForElement("video", r.cfg.ReadyTimeout); err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("load check failed")
		return false
	}

	deadline := time.Now().Add(r.cfg.ReadyTimeout)
	for {
		status, err := r.collector.Status()
		if err != nil {
			result.Error = err.Error()
			r.log.WithError(err).Warn("load check failed")
			return false
		}

		r.log.WithFields(logrus.Fields{
			"status":     status.StatusText,
			"readyState": status.ReadyState,
		}).Debug("polling video readiness")

		if status.Error != "" {
			result.Error = "video reported error: " + status.Error
			result.Detail = map[string]interface{}{"status_text": status.StatusText}
			r.log.WithField("error", status.Error).Warn("load check failed")
			return false
		}
		if status.Ready && status.ReadyState >= metrics.ReadyStateCanPlay {
			result.Status = StatusPass
			result.Detail = map[string]interface{}{
				"status_text": status.StatusText,
				"ready_state": status.ReadyState,
			}
			r.appendSnapshot()
			return true
		}
		if time.Now().After(deadline) {
			result.Error = fmt.Sprintf("timed out after %v waiting for video to become ready", r.cfg.ReadyTimeout)
			r.log.Warn("load check timed out")
			return false
		}
		if err := sleepCtx(ctx, r.cfg.PollInterval); err != nil {
			result.Error = err.Error()
			return false
		}
	}
}

// checkProperties records the element's reported properties. It fails
// only when the video never became ready or the query itself errors.
func (r *Runner) checkProperties(report *Report, ready bool) {
	result := TestResult{Name: "properties", Status: StatusFail}
	defer func() { report.Tests = append(report.Tests, result) }()

	if !ready {
		result.Error = "video never became ready"
		return
	}

	status, err := r.collector.Status()
	if err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("properties check failed")
		return
	}

	result.Status = StatusPass
	result.Detail = map[string]interface{}{
		"duration":      status.Duration,
		"width":         status.VideoWidth,
		"height":        status.VideoHeight,
		"ready_state":   status.ReadyState,
		"network_state": status.NetworkState,
	}
	r.log.WithFields(logrus.Fields{
		"duration":   status.Duration,
		"resolution": status.ResolutionLabel(),
	}).Info("video properties")
}

// checkPlayback starts playback, waits a settle delay, and asserts the
// playhead moved.
func (r *Runner) checkPlayback(ctx context.Context, report *Report, ready bool) {
	result := TestResult{Name: "playback", Status: StatusFail}
	defer func() { report.Tests = append(report.Tests, result) }()

	if !ready {
		result.Error = "video never became ready"
		return
	}

	if err := r.collector.Play(); err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("playback check failed")
		return
	}
	if err := sleepCtx(ctx, r.cfg.SettleDelay); err != nil {
		result.Error = err.Error()
		return
	}

	status, err := r.collector.Status()
	if err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("playback check failed")
		return
	}
	r.metricsLog = append(r.metricsLog, metrics.Record(status))

	result.Detail = map[string]interface{}{
		"current_time": status.CurrentTime,
		"paused":       status.Paused,
	}
	if status.CurrentTime > 0 && !status.Paused {
		result.Status = StatusPass
	} else {
		result.Error = fmt.Sprintf("playhead did not advance (currentTime=%.2f, paused=%v)", status.CurrentTime, status.Paused)
	}
}

// checkSeek jumps the playhead to the configured target and asserts the
// observed position lands within tolerance.
func (r *Runner) checkSeek(ctx context.Context, report *Report, ready bool) {
	result := TestResult{Name: "seek", Status: StatusFail}
	defer func() { report.Tests = append(report.Tests, result) }()

	if !ready {
		result.Error = "video never became ready"
		return
	}

	if err := r.collector.SeekTo(r.cfg.SeekTarget); err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("seek check failed")
		return
	}
	if err := sleepCtx(ctx, r.cfg.SettleDelay); err != nil {
		result.Error = err.Error()
		return
	}

	status, err := r.collector.Status()
	if err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("seek check failed")
		return
	}
	r.metricsLog = append(r.metricsLog, metrics.Record(status))

	diff := math.Abs(status.CurrentTime - r.cfg.SeekTarget)
	result.Detail = map[string]interface{}{
		"target":       r.cfg.SeekTarget,
		"current_time": status.CurrentTime,
		"diff":         diff,
	}
	if diff < r.cfg.SeekTolerance {
		result.Status = StatusPass
	} else {
		result.Error = fmt.Sprintf("playhead at %.2fs, wanted %.2fs within %.1fs", status.CurrentTime, r.cfg.SeekTarget, r.cfg.SeekTolerance)
	}
}

// checkQuality clicks through the quality-selector stub. Known gap:
// success only means the UI accepted both clicks, not that the rendered
// resolution changed. The before/after labels in the detail map show
// whether anything actually did.
func (r *Runner) checkQuality(ctx context.Context, report *Report, ready bool) {
	result := TestResult{Name: "quality", Status: StatusFail}
	defer func() { report.Tests = append(report.Tests, result) }()

	if !ready {
		result.Error = "video never became ready"
		return
	}

	before, err := r.collector.Status()
	if err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("quality check failed")
		return
	}

	if err := r.session.Click(".quality-selector"); err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("quality check failed")
		return
	}
	if err := sleepCtx(ctx, qualityMenuDelay); err != nil {
		result.Error = err.Error()
		return
	}
	if err := r.session.Click(qualityOptionSelector(r.cfg.QualityOption)); err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("quality check failed")
		return
	}
	if err := sleepCtx(ctx, r.cfg.SettleDelay); err != nil {
		result.Error = err.Error()
		return
	}

	after, err := r.collector.Status()
	if err != nil {
		result.Error = err.Error()
		r.log.WithError(err).Warn("quality check failed")
		return
	}
	r.metricsLog = append(r.metricsLog, metrics.Record(after))

	result.Status = StatusPass
	result.Detail = map[string]interface{}{
		"option":            r.cfg.QualityOption,
		"resolution_before": before.ResolutionLabel(),
		"resolution_after":  after.ResolutionLabel(),
	}
}

// qualityOptionSelector maps a quality label onto the fixture's option
// list. Unknown labels fall back to the middle option.
func qualityOptionSelector(label string) string {
	nth := 2
	switch label {
	case "1080p":
		nth = 1
	case "720p":
		nth = 2
	case "480p":
		nth = 3
	}
	return fmt.Sprintf(".quality-options .quality-option:nth-of-type(%d)", nth)
}

// appendSnapshot records a metrics entry, tolerating snapshot failures.
func (r *Runner) appendSnapshot() {
	m, err := r.collector.Snapshot()
	if err != nil {
		r.log.WithError(err).Debug("metrics snapshot failed")
		return
	}
	r.metricsLog = append(r.metricsLog, m)
}

// sleepCtx sleeps for d unless ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
