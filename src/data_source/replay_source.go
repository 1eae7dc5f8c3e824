package datasource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"
)

const (
	minuteMillis = int64(time.Minute / time.Millisecond)
	hourMillis   = 60 * minuteMillis
)

// -----------------------------------------------------------------------------

// ReplayFeed streams a recorded history as if the candles were closing live.
// Secondary candles are emitted as soon as their close time is reached by the
// primary stream, so the consumer never sees a secondary bar from the future.
type ReplayFeed struct {
	Primary            []models.MCandle
	Secondary          []models.MCandle
	PrimaryTimeframe   string
	SecondaryTimeframe string
	// Interval paces the primary candles; zero replays as fast as the consumer reads.
	Interval time.Duration
	Logger   *logger.Logger

	isRunning atomic.Bool
	emitted   atomic.Int64
}

// -----------------------------------------------------------------------------

func NewReplayFeed(primary, secondary []models.MCandle, interval time.Duration, log *logger.Logger) *ReplayFeed {
	return &ReplayFeed{
		Primary:            primary,
		Secondary:          secondary,
		PrimaryTimeframe:   "15m",
		SecondaryTimeframe: "1h",
		Interval:           interval,
		Logger:             log,
	}
}

// -----------------------------------------------------------------------------

func (f *ReplayFeed) Name() string {
	return "replay"
}

// -----------------------------------------------------------------------------

// Emitted returns how many candles have been delivered so far.
func (f *ReplayFeed) Emitted() int64 {
	return f.emitted.Load()
}

// -----------------------------------------------------------------------------

// Start begins the replay loop
func (f *ReplayFeed) Start(ctx context.Context, out chan<- models.MCandleEvent, wg *sync.WaitGroup) error {
	if !f.isRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("feed %s is already running", f.Name())
	}

	wg.Add(1)
	go f.runLoop(ctx, out, wg)
	f.Logger.Info("Started replay feed: %d %s / %d %s candles",
		len(f.Primary), f.PrimaryTimeframe, len(f.Secondary), f.SecondaryTimeframe)
	return nil
}

// -----------------------------------------------------------------------------

func (f *ReplayFeed) runLoop(ctx context.Context, out chan<- models.MCandleEvent, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(out)
	defer f.isRunning.Store(false)

	var ticker *time.Ticker
	if f.Interval > 0 {
		ticker = time.NewTicker(f.Interval)
		defer ticker.Stop()
	}

	primaryLen := TimeframeMillis(f.PrimaryTimeframe)
	secondaryLen := TimeframeMillis(f.SecondaryTimeframe)
	next := 0

	for _, c := range f.Primary {
		closeTime := c.Timestamp + primaryLen

		for next < len(f.Secondary) && f.Secondary[next].Timestamp+secondaryLen <= closeTime {
			if !f.push(ctx, out, models.MCandleEvent{Timeframe: f.SecondaryTimeframe, Candle: f.Secondary[next]}) {
				return
			}
			next++
		}

		if !f.push(ctx, out, models.MCandleEvent{Timeframe: f.PrimaryTimeframe, Candle: c}) {
			return
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}

	f.Logger.Info("Replay feed exhausted after %d candles", f.emitted.Load())
}

// -----------------------------------------------------------------------------

func (f *ReplayFeed) push(ctx context.Context, out chan<- models.MCandleEvent, ev models.MCandleEvent) bool {
	select {
	case out <- ev:
		f.emitted.Add(1)
		return true
	case <-ctx.Done():
		return false
	}
}

// -----------------------------------------------------------------------------

// TimeframeMillis converts "15m", "1h", "4h" or "1d" to milliseconds.
func TimeframeMillis(tf string) int64 {
	d, err := time.ParseDuration(tf)
	if err == nil {
		return int64(d / time.Millisecond)
	}
	if len(tf) > 1 && tf[len(tf)-1] == 'd' {
		var days int64
		if _, err := fmt.Sscanf(tf, "%dd", &days); err == nil {
			return days * 24 * hourMillis
		}
	}
	return 15 * minuteMillis
}
