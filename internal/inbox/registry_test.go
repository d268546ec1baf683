package inbox

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memHiddenStore struct {
	mu      sync.Mutex
	ids     map[string]struct{}
	failAdd error
	loads   int
}

func newMemHiddenStore(ids ...string) *memHiddenStore {
	return &memHiddenStore{ids: toSet(ids)}
}

func (m *memHiddenStore) HiddenThreadIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return sortedKeys(m.ids), nil
}

func (m *memHiddenStore) AddHiddenThreads(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd != nil {
		return m.failAdd
	}
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
	return nil
}

func (m *memHiddenStore) RemoveHiddenThreads(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.ids, id)
	}
	return nil
}

func (m *memHiddenStore) set(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = toSet(ids)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRegistryRefreshLoadsStore(t *testing.T) {
	store := newMemHiddenStore("B", "A")
	r := NewRegistry(store, quietLogger())

	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, []string{"A", "B"}, r.Hidden())
	assert.True(t, r.IsHidden("A"))
	assert.False(t, r.IsHidden("C"))
}

func TestRegistryHideIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newMemHiddenStore("X"), quietLogger())
	require.NoError(t, r.Refresh(ctx))

	require.NoError(t, r.Hide(ctx, []string{"A", "B"}))
	once := r.Hidden()
	require.NoError(t, r.Hide(ctx, []string{"A", "B"}))

	assert.Equal(t, once, r.Hidden())
	assert.Equal(t, []string{"A", "B", "X"}, once)
}

func TestRegistryHideShowRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemHiddenStore("X", "Y")
	r := NewRegistry(store, quietLogger())
	require.NoError(t, r.Refresh(ctx))
	before := r.Hidden()

	require.NoError(t, r.Hide(ctx, []string{"T"}))
	assert.True(t, r.IsHidden("T"))
	require.NoError(t, r.Show(ctx, []string{"T"}))

	assert.Equal(t, before, r.Hidden())

	persisted, _ := store.HiddenThreadIDs(ctx)
	assert.Equal(t, before, persisted)
}

func TestRegistryToggle(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newMemHiddenStore(), quietLogger())

	require.NoError(t, r.Toggle(ctx, "A"))
	assert.True(t, r.IsHidden("A"))
	require.NoError(t, r.Toggle(ctx, "A"))
	assert.False(t, r.IsHidden("A"))
}

func TestRegistryHideFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := newMemHiddenStore("A")
	r := NewRegistry(store, quietLogger())
	require.NoError(t, r.Refresh(ctx))

	store.failAdd = errors.New("store offline")
	assert.Error(t, r.Hide(ctx, []string{"B"}))
	assert.Equal(t, []string{"A"}, r.Hidden())
}

func TestRegistryEditCommitProducesDeltas(t *testing.T) {
	ctx := context.Background()
	store := newMemHiddenStore("A", "B")
	r := NewRegistry(store, quietLogger())
	require.NoError(t, r.Refresh(ctx))

	require.NoError(t, r.BeginEdit())
	assert.ErrorIs(t, r.BeginEdit(), ErrEditInProgress)

	selection, err := r.Selection()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, selection, "selection starts from hidden set")

	selected, err := r.ToggleSelection("B")
	require.NoError(t, err)
	assert.False(t, selected)
	selected, err = r.ToggleSelection("C")
	require.NoError(t, err)
	assert.True(t, selected)

	// nothing changes until commit
	assert.Equal(t, []string{"A", "B"}, r.Hidden())

	delta, err := r.CommitEdit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, delta.Hide)
	assert.Equal(t, []string{"B"}, delta.Show)
	assert.False(t, r.Editing())
	assert.Equal(t, []string{"A", "C"}, r.Hidden())

	persisted, _ := store.HiddenThreadIDs(ctx)
	assert.Equal(t, []string{"A", "C"}, persisted)
}

func TestRegistryEditWithoutSession(t *testing.T) {
	r := NewRegistry(newMemHiddenStore(), quietLogger())

	_, err := r.ToggleSelection("A")
	assert.ErrorIs(t, err, ErrNoEdit)
	_, err = r.Selection()
	assert.ErrorIs(t, err, ErrNoEdit)
	_, err = r.CommitEdit(context.Background())
	assert.ErrorIs(t, err, ErrNoEdit)
}

func TestRegistryCancelEditDiscardsSelection(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newMemHiddenStore("A"), quietLogger())
	require.NoError(t, r.Refresh(ctx))

	require.NoError(t, r.BeginEdit())
	_, err := r.ToggleSelection("A")
	require.NoError(t, err)
	r.CancelEdit()

	assert.False(t, r.Editing())
	assert.Equal(t, []string{"A"}, r.Hidden())
}

func TestRegistryRefreshSkippedDuringEdit(t *testing.T) {
	ctx := context.Background()
	store := newMemHiddenStore("A")
	r := NewRegistry(store, quietLogger())
	require.NoError(t, r.Refresh(ctx))

	require.NoError(t, r.BeginEdit())
	store.set("A", "Z")
	loads := store.loads
	require.NoError(t, r.Refresh(ctx))
	assert.Equal(t, loads, store.loads, "store not read during edit")
	assert.Equal(t, []string{"A"}, r.Hidden())

	r.CancelEdit()
	require.NoError(t, r.Refresh(ctx))
	assert.Equal(t, []string{"A", "Z"}, r.Hidden())
}

func TestRegistryFailedCommitKeepsEditOpen(t *testing.T) {
	ctx := context.Background()
	store := newMemHiddenStore()
	r := NewRegistry(store, quietLogger())

	require.NoError(t, r.BeginEdit())
	_, err := r.ToggleSelection("A")
	require.NoError(t, err)

	store.failAdd = errors.New("store offline")
	_, err = r.CommitEdit(ctx)
	require.Error(t, err)
	assert.True(t, r.Editing())

	store.failAdd = nil
	delta, err := r.CommitEdit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, delta.Hide)
}

func TestDiff(t *testing.T) {
	d := Diff(toSet([]string{"a", "b", "c"}), toSet([]string{"b", "c", "d", "e"}))
	sort.Strings(d.Hide)
	assert.Equal(t, []string{"d", "e"}, d.Hide)
	assert.Equal(t, []string{"a"}, d.Show)
	assert.True(t, Diff(toSet([]string{"a"}), toSet([]string{"a"})).Empty())
}
