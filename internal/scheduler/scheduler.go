package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"TradeDesk/internal/app"
	"TradeDesk/internal/model"
	"TradeDesk/internal/notifier"
	"TradeDesk/internal/strategy"

	"github.com/robfig/cron/v3"
)

// Sender delivers a message to the operator.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the cron jobs and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Desk     *app.Desk
	Notifier Sender
	Format   notifier.Formatter
	Ctx      context.Context
	Now      func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, desk *app.Desk, sender Sender) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Desk:     desk,
		Notifier: sender,
		Format:   notifier.Formatter{Currency: desk.Config.Trading.Currency},
		Ctx:      ctx,
		Now:      time.Now,
	}
}

// RegisterAll registers the watchlist scan and the equity snapshot.
func (s *Scheduler) RegisterAll(scanCron, snapshotCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunScanNow executes the scan immediately (for RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

func (s *Scheduler) scanTask() {
	log.Println("[INFO] running watchlist scan")
	quotes, errs := s.Desk.Scan(s.Ctx, nil)
	for sym, err := range errs {
		log.Printf("[ERROR] scan %s: %v", sym, err)
	}
	if len(quotes) == 0 && len(errs) > 0 {
		s.trySend(fmt.Sprintf("❌ scan failed for all %d symbols", len(errs)))
		return
	}
	if msg := s.Format.FormatAlerts(quotes, s.Now()); msg != "" {
		s.trySend(msg)
	}
}

func (s *Scheduler) snapshotTask() {
	log.Println("[INFO] recording equity snapshot")
	p, err := s.Desk.RecordEquity(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] equity snapshot: %v", err)
		return
	}
	log.Printf("[INFO] equity %.2f (cash %.2f)", p.TotalValue, p.Cash)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "/signals":
		return s.signals(args)
	case "/portfolio":
		m, err := s.Desk.Metrics(s.Ctx)
		if err != nil {
			return notifier.FormatError(err)
		}
		return s.Format.FormatPortfolio(m)
	case "/metrics":
		m, err := s.Desk.Metrics(s.Ctx)
		if err != nil {
			return notifier.FormatError(err)
		}
		return s.Format.FormatMetrics(m)
	case "/trades":
		trades, err := s.Desk.Store.Trades(s.Ctx)
		if err != nil {
			return notifier.FormatError(err)
		}
		return s.Format.FormatTrades(trades, 10)
	case "/buy":
		return s.order(model.Buy, args)
	case "/sell":
		return s.order(model.Sell, args)
	case "/exit":
		if len(args) != 1 {
			return "Usage: /exit SYMBOL"
		}
		t, err := s.Desk.Exit(s.Ctx, strings.ToUpper(args[0]), 0)
		return s.confirm(t, err)
	default:
		return notifier.HelpText()
	}
}

func (s *Scheduler) signals(args []string) string {
	key := ""
	if len(args) > 0 {
		key = strings.ToLower(args[0])
	}
	sortKey, err := strategy.ParseSortKey(key)
	if err != nil {
		return notifier.FormatError(err)
	}
	quotes, errs := s.Desk.Scan(s.Ctx, nil)
	strategy.SortQuotes(quotes, sortKey)
	return s.Format.FormatSignals(quotes, errs, s.Now())
}

func (s *Scheduler) order(typ model.TradeType, args []string) string {
	if len(args) != 2 {
		return fmt.Sprintf("Usage: /%s SYMBOL QTY", strings.ToLower(string(typ)))
	}
	qty, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return notifier.FormatError(&model.ValidationError{
			Rule:    "quantity",
			Message: fmt.Sprintf("quantity %q is not a whole number", args[1]),
		})
	}
	t, err := s.Desk.Order(s.Ctx, typ, strings.ToUpper(args[0]), qty, 0)
	return s.confirm(t, err)
}

func (s *Scheduler) confirm(t model.Trade, err error) string {
	if err != nil {
		return notifier.FormatError(err)
	}
	snap, err := s.Desk.Manager.Snapshot(s.Ctx)
	if err != nil {
		return notifier.FormatError(err)
	}
	return s.Format.FormatTrade(t, snap.Cash)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
