// Package metrics reads playback state out of the page's video element.
// Every query is a fresh synchronous snapshot; nothing is cached.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/ysmood/gson"
)

// ReadyStateCanPlay is HTMLMediaElement.HAVE_FUTURE_DATA: enough data is
// buffered to start playing. The load check requires at least this.
const ReadyStateCanPlay = 3

// Evaluator is the page-script surface the collector needs. It is
// satisfied by browser.Session.
type Evaluator interface {
	Eval(js string) (gson.JSON, error)
}

// VideoStatus is the raw per-poll snapshot of the page's video element.
type VideoStatus struct {
	Ready        bool    // window.videoReady, set by the fixture's canplay hook
	StatusText   string  // visible #status string, empty on non-fixture pages
	ReadyState   int     // HTMLMediaElement.readyState
	NetworkState int     // HTMLMediaElement.networkState
	Duration     float64 // seconds, 0 until metadata loads
	VideoWidth   int
	VideoHeight  int
	Paused       bool
	CurrentTime  float64
	Buffered     int    // number of buffered time ranges
	Error        string // media error message, empty if none
}

// ResolutionLabel returns the pixel dimensions as "WxH". Only meaningful
// once metadata has loaded; before that it is "0x0".
func (v VideoStatus) ResolutionLabel() string {
	return fmt.Sprintf("%dx%d", v.VideoWidth, v.VideoHeight)
}

// StreamMetrics is one immutable entry in the run's metrics log.
type StreamMetrics struct {
	BufferRangeCount    int       `json:"buffer_range_count"`
	PlaybackTimeSeconds float64   `json:"playback_time_seconds"`
	ResolutionLabel     string    `json:"resolution_label"`
	CapturedAt          time.Time `json:"captured_at"`
}

// statusScript reads every property the checks need in one round trip.
// Duration can be NaN before metadata loads, which CDP cannot serialize,
// so it is clamped to 0.
const statusScript = `() => {
	const video = document.querySelector('video');
	if (!video) return null;
	const status = document.querySelector('#status');
	return {
		ready: window.videoReady === true,
		statusText: status ? status.textContent : '',
		readyState: video.readyState,
		networkState: video.networkState,
		duration: Number.isFinite(video.duration) ? video.duration : 0,
		videoWidth: video.videoWidth,
		videoHeight: video.videoHeight,
		paused: video.paused,
		currentTime: video.currentTime,
		buffered: video.buffered.length,
		error: video.error ? (video.error.message || ('media error code ' + video.error.code)) : ''
	};
}`

// ErrNoVideo reports that the page has no video element to inspect.
var ErrNoVideo = errors.New("no video element on page")

// Collector issues fixed page-context queries against one session.
type Collector struct {
	eval Evaluator
}

// New returns a collector bound to the given session.
func New(eval Evaluator) *Collector {
	return &Collector{eval: eval}
}

// Status takes a fresh snapshot of the video element.
func (c *Collector) Status() (VideoStatus, error) {
	v, err := c.eval.Eval(statusScript)
	if err != nil {
		return VideoStatus{}, err
	}
	if v.Val() == nil {
		return VideoStatus{}, ErrNoVideo
	}
	return VideoStatus{
		Ready:        v.Get("ready").Bool(),
		StatusText:   v.Get("statusText").Str(),
		ReadyState:   v.Get("readyState").Int(),
		NetworkState: v.Get("networkState").Int(),
		Duration:     v.Get("duration").Num(),
		VideoWidth:   v.Get("videoWidth").Int(),
		VideoHeight:  v.Get("videoHeight").Int(),
		Paused:       v.Get("paused").Bool(),
		CurrentTime:  v.Get("currentTime").Num(),
		Buffered:     v.Get("buffered").Int(),
		Error:        v.Get("error").Str(),
	}, nil
}

// Record flattens a status reading into a StreamMetrics entry stamped
// with the current time.
func Record(status VideoStatus) StreamMetrics {
	return StreamMetrics{
		BufferRangeCount:    status.Buffered,
		PlaybackTimeSeconds: status.CurrentTime,
		ResolutionLabel:     status.ResolutionLabel(),
		CapturedAt:          time.Now(),
	}
}

// Snapshot takes a status reading and flattens it into a StreamMetrics
// entry stamped with the current time.
func (c *Collector) Snapshot() (StreamMetrics, error) {
	status, err := c.Status()
	if err != nil {
		return StreamMetrics{}, err
	}
	return Record(status), nil
}

// Play starts playback. Autoplay rejections surface through the next
// status poll as a still-paused element, not as an Eval error.
func (c *Collector) Play() error {
	_, err := c.eval.Eval(`() => { document.querySelector('video').play().catch(() => {}); }`)
	return err
}

// SeekTo sets the playhead to the given offset in seconds.
func (c *Collector) SeekTo(seconds float64) error {
	_, err := c.eval.Eval(fmt.Sprintf(`() => { document.querySelector('video').currentTime = %g; }`, seconds))
	return err
}
