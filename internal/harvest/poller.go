package harvest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/store"
)

// State represents the current state of the harvester.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
	StateOffline
)

// Status holds the harvester's last known state.
type Status struct {
	State    State
	LastRun  time.Time
	Recorded int
	Error    error
}

// HarvestResultMsg is a tea.Msg sent when one mailbox has been harvested.
type HarvestResultMsg struct {
	Mailbox  string
	Recorded int
	Error    error
	// AuthFailed is set when the server rejected the credentials.
	AuthFailed bool
	// Source is the poller that produced the result.
	Source *Poller
}

// Recorder is the part of the store the harvester writes to.
type Recorder interface {
	RecordCorrespondents(ctx context.Context, seen []model.Correspondent) error
	GetHarvestCursor(ctx context.Context, mailbox string) (*store.HarvestCursor, error)
	SetHarvestCursor(ctx context.Context, cursor store.HarvestCursor) error
}

// fetchTimeout is the maximum time allowed for a single mailbox.
const fetchTimeout = 60 * time.Second

// Poller runs the fetcher over the configured mailboxes on an interval.
type Poller struct {
	fetcher   Fetcher
	store     Recorder
	mailboxes []string
	interval  time.Duration
	limit     int
	self      map[string]bool
	online    func() bool
	log       *zap.Logger

	status    Status
	resultCh  chan HarvestResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewPoller creates a poller. online reports connectivity; when it returns
// false a round is skipped. A nil online is treated as always online.
func NewPoller(f Fetcher, s Recorder, cfg model.HarvestConfig, online func() bool, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	self := make(map[string]bool)
	if strings.Contains(cfg.Username, "@") {
		self[strings.ToLower(cfg.Username)] = true
	}
	mailboxes := cfg.Mailboxes
	if len(mailboxes) == 0 {
		mailboxes = []string{"INBOX"}
	}
	interval := time.Duration(cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Poller{
		fetcher:   f,
		store:     s,
		mailboxes: mailboxes,
		interval:  interval,
		limit:     cfg.MaxMessages,
		self:      self,
		online:    online,
		log:       log.Named("harvest"),
		resultCh:  make(chan HarvestResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.WaitForNextResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate harvest.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A round is already pending.
	}
}

// Status returns the harvester's current status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// WaitForNextResult returns a tea.Cmd that waits for the next harvest
// result. Call it again after each HarvestResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runAndSend()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.runAndSend()
		case <-p.triggerCh:
			p.runAndSend()
		}
	}
}

func (p *Poller) runAndSend() {
	for _, msg := range p.RunOnce(context.Background()) {
		msg.Source = p
		select {
		case p.resultCh <- msg:
		default:
			// Drop if channel is full to avoid blocking the poller
		}
	}
}

// RunOnce harvests every mailbox once and returns one result per mailbox.
// An authentication failure stops the round since the remaining mailboxes
// would fail the same way.
func (p *Poller) RunOnce(ctx context.Context) []HarvestResultMsg {
	if p.online != nil && !p.online() {
		p.setStatus(StateOffline, 0, nil)
		return nil
	}
	p.setStatus(StateRunning, 0, nil)

	var results []HarvestResultMsg
	total := 0
	var lastErr error
	for _, mailbox := range p.mailboxes {
		res := p.harvestMailbox(ctx, mailbox)
		results = append(results, res)
		total += res.Recorded
		if res.Error != nil {
			lastErr = res.Error
		}
		if res.AuthFailed {
			break
		}
	}

	if lastErr != nil {
		p.setStatus(StateError, total, lastErr)
	} else {
		p.setStatus(StateIdle, total, nil)
	}
	return results
}

func (p *Poller) harvestMailbox(ctx context.Context, mailbox string) HarvestResultMsg {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	cursor, err := p.store.GetHarvestCursor(ctx, mailbox)
	if err != nil {
		return HarvestResultMsg{Mailbox: mailbox, Error: err}
	}

	batch, err := p.fetcher.Fetch(ctx, *cursor, p.limit)
	if err != nil {
		p.log.Warn("harvest failed", zap.String("mailbox", mailbox), zap.Error(err))
		return HarvestResultMsg{Mailbox: mailbox, Error: err, AuthFailed: IsAuthError(err)}
	}

	seen := withoutSelf(batch.Correspondents, p.self)
	if err := p.store.RecordCorrespondents(ctx, seen); err != nil {
		return HarvestResultMsg{Mailbox: mailbox, Error: fmt.Errorf("recording correspondents: %w", err)}
	}
	batch.Cursor.Mailbox = mailbox
	if err := p.store.SetHarvestCursor(ctx, batch.Cursor); err != nil {
		return HarvestResultMsg{Mailbox: mailbox, Recorded: len(seen), Error: err}
	}

	p.log.Debug("mailbox harvested",
		zap.String("mailbox", mailbox),
		zap.Int("addresses", len(seen)),
		zap.Uint32("last_uid", batch.Cursor.LastUID),
	)
	return HarvestResultMsg{Mailbox: mailbox, Recorded: len(seen)}
}

func (p *Poller) setStatus(state State, recorded int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == StateIdle || state == StateError {
		p.status.LastRun = time.Now()
		p.status.Recorded = recorded
	}
}
