package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrEditInProgress is returned by BeginEdit when an edit session is already open
	ErrEditInProgress = errors.New("hidden thread edit already in progress")
	// ErrNoEdit is returned when an edit operation runs without an open session
	ErrNoEdit = errors.New("no hidden thread edit in progress")
)

// HiddenStore persists the hidden-thread set
type HiddenStore interface {
	HiddenThreadIDs(ctx context.Context) ([]string, error)
	AddHiddenThreads(ctx context.Context, ids []string) error
	RemoveHiddenThreads(ctx context.Context, ids []string) error
}

// Delta is the outcome of a bulk edit
type Delta struct {
	Hide []string `json:"hide"`
	Show []string `json:"show"`
}

// Empty reports whether the edit changed nothing
func (d Delta) Empty() bool {
	return len(d.Hide) == 0 && len(d.Show) == 0
}

// Registry tracks which threads the operator has hidden.
//
// The set is always replaced wholesale, never edited in place, so readers
// holding a snapshot are never torn. While a bulk edit is open, Refresh is
// skipped so a background reload cannot discard the pending selection.
type Registry struct {
	store  HiddenStore
	logger *logrus.Logger

	mu        sync.RWMutex
	hidden    map[string]struct{}
	editing   bool
	selection map[string]struct{}
}

// NewRegistry creates an empty registry; call Refresh to load it
func NewRegistry(store HiddenStore, logger *logrus.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		hidden: map[string]struct{}{},
	}
}

// Refresh reloads the hidden set from the store. It is a no-op while an edit
// session is open. On failure the previous set is kept.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.Editing() {
		r.logger.Debug("Skipping hidden thread refresh during edit")
		return nil
	}

	ids, err := r.store.HiddenThreadIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load hidden threads: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.editing {
		// an edit began while we were reading
		return nil
	}
	r.hidden = toSet(ids)
	return nil
}

// Hidden returns the hidden thread ids, sorted
func (r *Registry) Hidden() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.hidden)
}

// Snapshot returns the current set. Callers must not modify it.
func (r *Registry) Snapshot() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hidden
}

// IsHidden reports whether a thread is hidden
func (r *Registry) IsHidden(threadID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hidden[threadID]
	return ok
}

// Hide adds threads to the hidden set
func (r *Registry) Hide(ctx context.Context, threadIDs []string) error {
	if len(threadIDs) == 0 {
		return nil
	}
	if err := r.store.AddHiddenThreads(ctx, threadIDs); err != nil {
		return fmt.Errorf("failed to hide threads: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden = union(r.hidden, threadIDs)
	r.logger.WithField("count", len(threadIDs)).Info("Hid threads")
	return nil
}

// Show removes threads from the hidden set
func (r *Registry) Show(ctx context.Context, threadIDs []string) error {
	if len(threadIDs) == 0 {
		return nil
	}
	if err := r.store.RemoveHiddenThreads(ctx, threadIDs); err != nil {
		return fmt.Errorf("failed to show threads: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden = difference(r.hidden, threadIDs)
	r.logger.WithField("count", len(threadIDs)).Info("Showed threads")
	return nil
}

// Toggle hides a visible thread or shows a hidden one
func (r *Registry) Toggle(ctx context.Context, threadID string) error {
	if r.IsHidden(threadID) {
		return r.Show(ctx, []string{threadID})
	}
	return r.Hide(ctx, []string{threadID})
}

// BeginEdit opens a bulk edit whose selection starts as the current hidden set
func (r *Registry) BeginEdit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.editing {
		return ErrEditInProgress
	}
	r.editing = true
	r.selection = union(r.hidden, nil)
	return nil
}

// Editing reports whether a bulk edit is open
func (r *Registry) Editing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.editing
}

// ToggleSelection flips one thread in the pending selection and reports
// whether it is now selected
func (r *Registry) ToggleSelection(threadID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.editing {
		return false, ErrNoEdit
	}
	if _, ok := r.selection[threadID]; ok {
		r.selection = difference(r.selection, []string{threadID})
		return false, nil
	}
	r.selection = union(r.selection, []string{threadID})
	return true, nil
}

// Selection returns the pending selection, sorted
func (r *Registry) Selection() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.editing {
		return nil, ErrNoEdit
	}
	return sortedKeys(r.selection), nil
}

// CommitEdit diffs the selection against the hidden set, persists both
// deltas and closes the edit. On failure the edit stays open for a retry.
func (r *Registry) CommitEdit(ctx context.Context) (Delta, error) {
	r.mu.RLock()
	if !r.editing {
		r.mu.RUnlock()
		return Delta{}, ErrNoEdit
	}
	delta := Diff(r.hidden, r.selection)
	r.mu.RUnlock()

	if err := r.store.AddHiddenThreads(ctx, delta.Hide); err != nil {
		return Delta{}, fmt.Errorf("failed to hide threads: %w", err)
	}
	if err := r.store.RemoveHiddenThreads(ctx, delta.Show); err != nil {
		return Delta{}, fmt.Errorf("failed to show threads: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden = difference(union(r.hidden, delta.Hide), delta.Show)
	r.editing = false
	r.selection = nil

	r.logger.WithFields(logrus.Fields{
		"hidden": len(delta.Hide),
		"shown":  len(delta.Show),
	}).Info("Committed hidden thread edit")
	return delta, nil
}

// CancelEdit discards the pending selection
func (r *Registry) CancelEdit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editing = false
	r.selection = nil
}

// Diff returns what must be hidden and shown to turn current into selection
func Diff(current, selection map[string]struct{}) Delta {
	var d Delta
	for id := range selection {
		if _, ok := current[id]; !ok {
			d.Hide = append(d.Hide, id)
		}
	}
	for id := range current {
		if _, ok := selection[id]; !ok {
			d.Show = append(d.Show, id)
		}
	}
	sort.Strings(d.Hide)
	sort.Strings(d.Show)
	return d
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// union returns a new set; neither input is modified
func union(set map[string]struct{}, ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(set)+len(ids))
	for id := range set {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// difference returns a new set without ids
func difference(set map[string]struct{}, ids []string) map[string]struct{} {
	drop := toSet(ids)
	out := make(map[string]struct{}, len(set))
	for id := range set {
		if _, ok := drop[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
