package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wadash/wadash-backend/internal/models"
	"github.com/wadash/wadash-backend/internal/scheduler"
)

// CommandLister is the slice of the store client the synchronizer needs.
type CommandLister interface {
	ListCommands(ctx context.Context) ([]models.Command, error)
}

// Broadcaster fans events out to dashboard subscribers.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// commandMap is the immutable cache generation. Refresh builds a fresh map
// and swaps it wholesale; lookups only ever see a complete generation.
type commandMap map[string]models.Command

// CommandSync mirrors the remote store's command table into memory. The
// cache is eventually consistent: it is refreshed by a recurring poll, by
// webhook pushes, and by a forced reload on every (re)connect.
type CommandSync struct {
	store       CommandLister
	broadcaster Broadcaster
	timeout     time.Duration
	interval    time.Duration

	commands atomic.Value // commandMap

	// refreshMu serializes refreshes end to end: one fetch in flight,
	// whichever refresh completes last fully determines the cache.
	refreshMu   sync.Mutex
	fingerprint string
	lastSync    atomic.Pointer[time.Time]
	loadCount   atomic.Int64

	sched *scheduler.Scheduler
}

// NewCommandSync creates a synchronizer polling the store every interval.
func NewCommandSync(store CommandLister, broadcaster Broadcaster, interval, timeout time.Duration) *CommandSync {
	s := &CommandSync{
		store:       store,
		broadcaster: broadcaster,
		timeout:     timeout,
		interval:    interval,
	}
	s.commands.Store(commandMap{})

	sched, err := scheduler.New(interval, func(ctx context.Context) {
		s.Refresh(ctx, false)
	})
	if err != nil {
		// Only reachable with a non-positive interval; config already
		// defaults that away.
		panic(err)
	}
	s.sched = sched
	return s
}

// Refresh fetches the full command list and, when its fingerprint differs
// from the last successful refresh (or force is set), replaces the cache
// wholesale. Returns false on fetch errors; the previous cache stays valid.
// A successfully fetched empty list is a valid result and swaps in an empty
// cache — it is never conflated with a failed fetch.
func (s *CommandSync) Refresh(ctx context.Context, force bool) bool {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	loadID := s.loadCount.Add(1)

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.store.ListCommands(fetchCtx)
	if err != nil {
		log.Printf("❌ [SYNC] #%d failed to load commands: %v", loadID, err)
		return false
	}

	fp := fingerprintCommands(list)
	if !force && fp == s.fingerprint {
		return true
	}

	next := make(commandMap, len(list))
	valid := 0
	for _, cmd := range list {
		key := normalizeTrigger(cmd.Trigger)
		if key == "" || cmd.Response == "" {
			log.Printf("⚠️  [SYNC] #%d skipping invalid command entry (trigger=%q)", loadID, cmd.Trigger)
			continue
		}
		next[key] = cmd
		valid++
	}

	s.commands.Store(next)
	s.fingerprint = fp
	now := time.Now()
	s.lastSync.Store(&now)

	triggers := make([]string, 0, len(next))
	active := make([]string, 0, len(next))
	for key, cmd := range next {
		triggers = append(triggers, key)
		if cmd.IsActive {
			active = append(active, cmd.Trigger)
		}
	}
	sort.Strings(triggers)
	sort.Strings(active)

	log.Printf("✅ [SYNC] #%d commands updated: %d valid of %d received", loadID, valid, len(list))

	if s.broadcaster != nil {
		s.broadcaster.Broadcast("commands-updated", map[string]interface{}{
			"load_id":         loadID,
			"count":           len(next),
			"total_received":  len(list),
			"commands":        triggers,
			"active_commands": active,
		})
	}

	return true
}

// Lookup resolves a message body to an active command. Normalization is
// trim + lowercase, matching how triggers are keyed. Safe to call while a
// refresh is in progress.
func (s *CommandSync) Lookup(text string) (*models.Command, bool) {
	key := normalizeTrigger(text)
	if key == "" {
		return nil, false
	}

	cmds := s.commands.Load().(commandMap)
	cmd, ok := cmds[key]
	if !ok || !cmd.IsActive {
		return nil, false
	}
	return &cmd, true
}

// StartAutoRefresh begins the recurring poll. The first refresh happens
// immediately (forced) so consumers don't wait a full interval for initial
// data. A no-op when already running.
func (s *CommandSync) StartAutoRefresh() {
	if !s.sched.Start() {
		return
	}
	log.Printf("🔄 [SYNC] auto-refresh started (every %s)", s.interval)
	s.Refresh(context.Background(), true)
}

// StopAutoRefresh cancels the recurring poll without interrupting a refresh
// already in flight. A no-op when not running.
func (s *CommandSync) StopAutoRefresh() {
	if s.sched.Stop() {
		log.Println("🛑 [SYNC] auto-refresh stopped")
	}
}

// AutoRefreshRunning reports whether the poll timer is active.
func (s *CommandSync) AutoRefreshRunning() bool {
	return s.sched.IsRunning()
}

// Commands returns a snapshot of the cached commands, sorted by trigger.
func (s *CommandSync) Commands() []models.Command {
	cmds := s.commands.Load().(commandMap)
	out := make([]models.Command, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool {
		return normalizeTrigger(out[i].Trigger) < normalizeTrigger(out[j].Trigger)
	})
	return out
}

// Count reports how many commands are cached.
func (s *CommandSync) Count() int {
	return len(s.commands.Load().(commandMap))
}

// ActiveCount reports how many cached commands are active.
func (s *CommandSync) ActiveCount() int {
	n := 0
	for _, cmd := range s.commands.Load().(commandMap) {
		if cmd.IsActive {
			n++
		}
	}
	return n
}

// LastSyncTime returns when the cache was last replaced, or nil before the
// first successful refresh.
func (s *CommandSync) LastSyncTime() *time.Time {
	return s.lastSync.Load()
}

// Interval returns the configured refresh interval.
func (s *CommandSync) Interval() time.Duration {
	return s.interval
}

func normalizeTrigger(trigger string) string {
	return strings.ToLower(strings.TrimSpace(trigger))
}

// fingerprintCommands computes an order-independent digest over the
// normalized (trigger, response, active) tuples. Entries without a trigger
// are ignored so a malformed row can't flap the fingerprint.
func fingerprintCommands(list []models.Command) string {
	parts := make([]string, 0, len(list))
	for _, cmd := range list {
		key := normalizeTrigger(cmd.Trigger)
		if key == "" {
			continue
		}
		flag := "0"
		if cmd.IsActive {
			flag = "1"
		}
		parts = append(parts, key+":"+cmd.Response+":"+flag)
	}
	sort.Strings(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return base64.StdEncoding.EncodeToString(sum[:])
}
