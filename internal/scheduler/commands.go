package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ConfluenceTrader/internal/notifier"
	"ConfluenceTrader/internal/recorder"
)

const helpText = `Available commands:
/status - account and journal summary
/positions - open positions
/close &lt;ticket&gt; - close a position
/pause - stop opening trades
/resume - resume trading`

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/status":
		st, err := s.status(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			return fmt.Sprintf("❌ status unavailable: %v", err)
		}
		return notifier.FormatStatus(st)
	case "/positions":
		positions, err := s.Broker.Positions(ctx, s.opts.Symbol)
		if err != nil {
			return fmt.Sprintf("❌ positions unavailable: %v", err)
		}
		return notifier.FormatPositions(positions)
	case "/close":
		if len(fields) != 2 {
			return "usage: /close &lt;ticket&gt;"
		}
		ticket, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Sprintf("invalid ticket %q", fields[1])
		}
		return s.closeTicket(ctx, ticket)
	case "/pause":
		s.Pause()
		return "⏸ Trading paused"
	case "/resume":
		s.Resume()
		return "▶️ Trading resumed"
	default:
		return helpText
	}
}

func (s *Scheduler) closeTicket(ctx context.Context, ticket int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.Dispatcher.Close(ctx, ticket)
	if err != nil {
		s.Metrics.Order("close", false)
		return fmt.Sprintf("❌ close #%d failed: %v", ticket, err)
	}
	s.Metrics.Order("close", true)
	s.record(s.Recorder.RecordClose(&recorder.CloseRecord{
		Ticket:  ticket,
		Price:   res.Price,
		Volume:  res.Volume,
		Retcode: res.Retcode,
		Reason:  "command",
	}))
	return notifier.FormatClose(ticket, res, "command")
}
