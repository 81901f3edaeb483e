package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
)

// fakeSession scripts a video element's behavior so the checks can run
// without a browser. Play and seek mutate its state the way a healthy
// (or deliberately broken) element would.
type fakeSession struct {
	openErr  error
	waitErr  error
	clickErr map[string]error

	ready       bool
	readyState  int
	errMsg      string
	paused      bool
	currentTime float64
	width       int
	height      int
	buffered    int

	playAdvance float64 // currentTime after play(); 0 keeps the element stalled
	seekResult  float64 // currentTime observed after a seek

	statusCalls    int
	statusErrAfter int   // status queries to serve before failing; 0 never fails
	statusErr      error // returned once statusErrAfter is exhausted

	clicks []string
}

func healthySession() *fakeSession {
	return &fakeSession{
		ready:       true,
		readyState:  4,
		paused:      true,
		width:       640,
		height:      360,
		buffered:    1,
		playAdvance: 1.5,
		seekResult:  2.2,
	}
}

func (f *fakeSession) Open(string) error { return f.openErr }

func (f *fakeSession) WaitForElement(string, time.Duration) error { return f.waitErr }

func (f *fakeSession) Eval(js string) (gson.JSON, error) {
	switch {
	case strings.Contains(js, ".play()"):
		if f.playAdvance > 0 {
			f.paused = false
			f.currentTime = f.playAdvance
		}
		return gson.New(nil), nil
	case strings.Contains(js, "currentTime ="):
		f.currentTime = f.seekResult
		return gson.New(nil), nil
	default:
		f.statusCalls++
		if f.statusErrAfter > 0 && f.statusCalls > f.statusErrAfter {
			return gson.New(nil), f.statusErr
		}
		return gson.New(map[string]interface{}{
			"ready":        f.ready,
			"statusText":   "",
			"readyState":   f.readyState,
			"networkState": 1,
			"duration":     10.0,
			"videoWidth":   f.width,
			"videoHeight":  f.height,
			"paused":       f.paused,
			"currentTime":  f.currentTime,
			"buffered":     f.buffered,
			"error":        f.errMsg,
		}), nil
	}
}

func (f *fakeSession) Click(selector string) error {
	f.clicks = append(f.clicks, selector)
	if err, ok := f.clickErr[selector]; ok {
		return err
	}
	return nil
}

func testConfig() Config {
	return Config{
		ReadyTimeout:  50 * time.Millisecond,
		PollInterval:  time.Millisecond,
		SettleDelay:   time.Millisecond,
		SeekTarget:    2.0,
		SeekTolerance: 1.0,
		QualityOption: "720p",
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func statusByName(t *testing.T, report *Report) map[string]TestResult {
	t.Helper()
	out := make(map[string]TestResult, len(report.Tests))
	for _, res := range report.Tests {
		out[res.Name] = res
	}
	return out
}

func TestRunner_AllChecksPass(t *testing.T) {
	sess := healthySession()
	r := New(sess, quietLogger(), testConfig())

	report, err := r.Run(context.Background(), "http://example/fixture")
	require.NoError(t, err)

	require.Len(t, report.Tests, len(CheckNames))
	for i, res := range report.Tests {
		assert.Equal(t, CheckNames[i], res.Name, "checks must run in a fixed order")
		assert.Equal(t, StatusPass, res.Status, "check %s", res.Name)
	}

	// The quality stub was clicked open and an option selected.
	require.Len(t, sess.clicks, 2)
	assert.Equal(t, ".quality-selector", sess.clicks[0])
	assert.Contains(t, sess.clicks[1], "nth-of-type(2)")
}

func TestRunner_MetricsLog(t *testing.T) {
	sess := healthySession()
	r := New(sess, quietLogger(), testConfig())

	report, err := r.Run(context.Background(), "http://example/fixture")
	require.NoError(t, err)

	// One snapshot after load, one per playback/seek/quality check.
	require.Len(t, report.Metrics, 4)

	for i := 1; i < len(report.Metrics); i++ {
		assert.False(t, report.Metrics[i].CapturedAt.Before(report.Metrics[i-1].CapturedAt),
			"timestamps must be monotonically non-decreasing")
	}

	// Playback passed, so its snapshot must show the playhead moved.
	byName := statusByName(t, report)
	require.Equal(t, StatusPass, byName["playback"].Status)
	assert.Greater(t, report.Metrics[1].PlaybackTimeSeconds, 0.0)
}

func TestRunner_BrokenSource(t *testing.T) {
	sess := healthySession()
	sess.ready = false
	sess.readyState = 0
	sess.errMsg = "media error code 4"

	r := New(sess, quietLogger(), testConfig())
	report, err := r.Run(context.Background(), "http://example/broken")
	require.NoError(t, err)

	require.Len(t, report.Tests, len(CheckNames))
	byName := statusByName(t, report)

	assert.Equal(t, StatusFail, byName["load"].Status)
	assert.Contains(t, byName["load"].Error, "media error code 4")

	// No downstream check may report a false PASS off stale ready state.
	for _, name := range []string{"properties", "playback", "seek", "quality"} {
		res := byName[name]
		assert.Equal(t, StatusFail, res.Status, "check %s", name)
		assert.Contains(t, res.Error, "never became ready", "check %s", name)
	}
	assert.False(t, report.Passed())

	// The broken element was never played, sought, or clicked.
	assert.Empty(t, sess.clicks)
}

func TestRunner_LoadTimeout(t *testing.T) {
	sess := healthySession()
	sess.ready = false
	sess.readyState = 1

	cfg := testConfig()
	cfg.ReadyTimeout = 10 * time.Millisecond

	r := New(sess, quietLogger(), cfg)
	report, err := r.Run(context.Background(), "http://example/slow")
	require.NoError(t, err)

	byName := statusByName(t, report)
	assert.Equal(t, StatusFail, byName["load"].Status)
	assert.Contains(t, byName["load"].Error, "timed out")
}

func TestRunner_PlaybackStalled(t *testing.T) {
	sess := healthySession()
	sess.playAdvance = 0 // play() has no effect

	r := New(sess, quietLogger(), testConfig())
	report, err := r.Run(context.Background(), "http://example/fixture")
	require.NoError(t, err)

	byName := statusByName(t, report)
	assert.Equal(t, StatusPass, byName["load"].Status)
	assert.Equal(t, StatusFail, byName["playback"].Status)
	assert.Contains(t, byName["playback"].Error, "did not advance")
}

func TestRunner_SeekOutsideTolerance(t *testing.T) {
	sess := healthySession()
	sess.seekResult = 5.0 // lands well past the 2.0s target

	r := New(sess, quietLogger(), testConfig())
	report, err := r.Run(context.Background(), "http://example/fixture")
	require.NoError(t, err)

	byName := statusByName(t, report)
	assert.Equal(t, StatusFail, byName["seek"].Status)
	assert.Equal(t, 5.0, byName["seek"].Detail["current_time"])
}

func TestRunner_SeekWithinTolerance(t *testing.T) {
	tests := []struct {
		name   string
		landed float64
		want   Status
	}{
		{"exact", 2.0, StatusPass},
		{"just inside", 2.9, StatusPass},
		{"boundary", 3.0, StatusFail},
		{"short", 0.5, StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := healthySession()
			sess.seekResult = tt.landed

			r := New(sess, quietLogger(), testConfig())
			report, err := r.Run(context.Background(), "http://example/fixture")
			require.NoError(t, err)

			byName := statusByName(t, report)
			assert.Equal(t, tt.want, byName["seek"].Status)
		})
	}
}

func TestRunner_QualityClickFailure(t *testing.T) {
	sess := healthySession()
	sess.clickErr = map[string]error{".quality-selector": errors.New("element not found")}

	r := New(sess, quietLogger(), testConfig())
	report, err := r.Run(context.Background(), "http://example/fixture")
	require.NoError(t, err)

	byName := statusByName(t, report)
	assert.Equal(t, StatusFail, byName["quality"].Status)
	assert.Contains(t, byName["quality"].Error, "element not found")

	// The other checks are unaffected.
	assert.Equal(t, StatusPass, byName["playback"].Status)
	assert.Equal(t, StatusPass, byName["seek"].Status)
}

func TestRunner_QualityStatusFailureLogged(t *testing.T) {
	sess := healthySession()
	// Serve the load poll, load snapshot, properties, playback and seek
	// queries, then fail on the quality check's pre-click status read.
	sess.statusErrAfter = 5
	sess.statusErr = errors.New("session crashed")

	log, hook := logtest.NewNullLogger()
	r := New(sess, log, testConfig())

	report, err := r.Run(context.Background(), "http://example/fixture")
	require.NoError(t, err)

	byName := statusByName(t, report)
	assert.Equal(t, StatusFail, byName["quality"].Status)
	assert.Contains(t, byName["quality"].Error, "session crashed")

	logged := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == "quality check failed" {
			logged = true
		}
	}
	assert.True(t, logged, "quality failure must be logged like the other checks")
}

func TestRunner_QualityRecordsResolutions(t *testing.T) {
	sess := healthySession()
	r := New(sess, quietLogger(), testConfig())

	report, err := r.Run(context.Background(), "http://example/fixture")
	require.NoError(t, err)

	// The check cannot verify an actual switch; the detail map carries
	// the before/after labels so the report shows what happened.
	byName := statusByName(t, report)
	detail := byName["quality"].Detail
	assert.Equal(t, "640x360", detail["resolution_before"])
	assert.Equal(t, "640x360", detail["resolution_after"])
	assert.Equal(t, "720p", detail["option"])
}

func TestRunner_OpenFailureAbortsRun(t *testing.T) {
	sess := healthySession()
	sess.openErr = errors.New("net::ERR_CONNECTION_REFUSED")

	r := New(sess, quietLogger(), testConfig())
	report, err := r.Run(context.Background(), "http://example/unreachable")

	require.Error(t, err)
	assert.Nil(t, report)
}

func TestRunner_ContextCancellation(t *testing.T) {
	sess := healthySession()
	sess.ready = false // force the load check into its poll loop

	cfg := testConfig()
	cfg.ReadyTimeout = time.Minute
	cfg.PollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(sess, quietLogger(), cfg)
	report, err := r.Run(ctx, "http://example/fixture")
	require.NoError(t, err)

	byName := statusByName(t, report)
	assert.Equal(t, StatusFail, byName["load"].Status)
	assert.Contains(t, byName["load"].Error, "context canceled")
}
