package util

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide DataChannel traffic counter.
var Stats = &stats{}

type stats struct {
	BytesSent    atomic.Int64 // cumulative bytes handed to the DataChannel
	BytesRecv    atomic.Int64 // cumulative bytes read from the DataChannel
	ChunksSent   atomic.Int64 // cumulative DataChannel messages sent
	MessagesRecv atomic.Int64 // cumulative DataChannel messages received
	Stalls       atomic.Int64 // times the outbound queue paused on buffer pressure
	Dropped      atomic.Int64 // inbound messages discarded as malformed
}

func (s *stats) AddSent(n int) {
	s.ChunksSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.MessagesRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

func (s *stats) AddStall() { s.Stalls.Add(1) }
func (s *stats) AddDrop()  { s.Dropped.Add(1) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs channel statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv, prevStalls int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()
				stalls := Stats.Stalls.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0
				st := stalls - prevStalls

				if st > 0 || inS > 10 || outS > 10 {
					pterm.DefaultLogger.Info(formatStats(inS, outS, st))
				}

				prevSent = sent
				prevRecv = recv
				prevStalls = stalls

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// FormatBytes is formatBytes without the padding, for inline log messages.
func FormatBytes(n int64) string {
	return strings.Join(strings.Fields(formatBytes(float64(n))), " ")
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inS, outS float64, stalls int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | Stalls: %3d",
		formatBytes(inS),
		formatBytes(outS),
		stalls,
	)
}
