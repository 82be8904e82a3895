// Package ingest dials an upstream tick feed over WebSocket and hands each
// decoded tick to a sink, adapted from the teacher's Binance stream dialer
// for a generic JSON tick feed instead of a single hardcoded exchange.
package ingest

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"tickcandle/models"
)

// Sink processes one decoded tick. Implementations typically run it through
// the aggregation engine.
type Sink func(req models.IngestTickRequest)

// Feed dials one upstream WebSocket tick stream and redelivers every
// message to Sink until Stop is called or the context is cancelled.
type Feed struct {
	url       string
	timeframe string
	bucketSz  float64
	multiplier int
	sink      Sink

	conn    *websocket.Conn
	stop    chan struct{}
	running bool
}

// NewFeed builds a feed for one upstream URL. A tick whose message leaves
// timeframe, bucketSize or multiplier unset gets these defaults before
// reaching sink.
func NewFeed(url, timeframe string, bucketSize float64, multiplier int, sink Sink) *Feed {
	return &Feed{
		url:        url,
		timeframe:  timeframe,
		bucketSz:   bucketSize,
		multiplier: multiplier,
		sink:       sink,
		stop:       make(chan struct{}),
	}
}

// Run connects and blocks reading frames until ctx is cancelled or Stop is
// called; it reconnects after a read error, and backs off exponentially (up
// to 30s) between failed dials.
func (f *Feed) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stop:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			log.Printf("ingest: failed to connect to %s: %v, retrying in %s", f.url, err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}

		f.conn = conn
		f.running = true
		backoff = time.Second
		log.Printf("ingest: connected to %s", f.url)
		f.readLoop(ctx)
		f.running = false
	}
}

func (f *Feed) readLoop(ctx context.Context) {
	defer f.conn.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stop:
			return
		default:
		}

		_, raw, err := f.conn.ReadMessage()
		if err != nil {
			log.Printf("ingest: read error: %v", err)
			return
		}

		var req models.IngestTickRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			log.Printf("ingest: malformed tick payload: %v", err)
			continue
		}
		if req.Timeframe == "" {
			req.Timeframe = f.timeframe
		}
		if req.BucketSize == 0 {
			req.BucketSize = f.bucketSz
		}
		if req.Multiplier == 0 {
			req.Multiplier = f.multiplier
		}
		f.sink(req)
	}
}

// Stop halts the feed; Run returns once the current connection unwinds.
func (f *Feed) Stop() {
	close(f.stop)
	if f.conn != nil {
		f.conn.Close()
	}
}
