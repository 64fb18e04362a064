package catalog

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

var ErrNotReady = errors.New("catalog: no active snapshot")

// Store holds the active Snapshot. Reads are lock-free; writers replace the
// whole snapshot.
type Store struct {
	active atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners []func()
}

func NewStore() *Store { return &Store{} }

// Set makes a copy of s the active snapshot.
func (st *Store) Set(s Snapshot) {
	cp := s
	cp.Items = slices.Clone(s.Items)
	if cp.LoadedAt.IsZero() {
		cp.LoadedAt = time.Now().UTC()
	}
	st.active.Store(&cp)
	st.changed()
}

// OnChange registers fn to run after every Set and every Remove that
// dropped an item. fn runs on the writer's goroutine.
func (st *Store) OnChange(fn func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners = append(st.listeners, fn)
}

func (st *Store) changed() {
	st.mu.Lock()
	fns := slices.Clone(st.listeners)
	st.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (st *Store) Get() (*Snapshot, bool) {
	s := st.active.Load()
	return s, s != nil
}

// Items returns the active items. Callers must not modify the slice.
func (st *Store) Items() []Item {
	if s := st.active.Load(); s != nil {
		return s.Items
	}
	return nil
}

// Lookup finds an item by ID, then by slug.
func (st *Store) Lookup(ref string) (Item, bool) {
	items := st.Items()
	if i := slices.IndexFunc(items, func(it Item) bool { return it.ID == ref }); i >= 0 {
		return items[i], true
	}
	if i := slices.IndexFunc(items, func(it Item) bool { return it.Slug != "" && it.Slug == ref }); i >= 0 {
		return items[i], true
	}
	return Item{}, false
}

// Remove drops the item with the given ID and reports whether one was
// removed. Concurrent removals and swaps never lose each other's updates.
func (st *Store) Remove(id string) bool {
	for {
		cur := st.active.Load()
		if cur == nil {
			return false
		}
		i := slices.IndexFunc(cur.Items, func(it Item) bool { return it.ID == id })
		if i < 0 {
			return false
		}
		next := *cur
		next.Items = slices.Delete(slices.Clone(cur.Items), i, i+1)
		if st.active.CompareAndSwap(cur, &next) {
			st.changed()
			return true
		}
	}
}

func (st *Store) ReadyErr() error {
	if _, ok := st.Get(); !ok {
		return ErrNotReady
	}
	return nil
}

// CatalogVersion is reported in response headers.
func (st *Store) CatalogVersion() string {
	if s := st.active.Load(); s != nil {
		return s.Meta.Version
	}
	return ""
}

func (st *Store) CatalogHash() string {
	if s := st.active.Load(); s != nil {
		return s.Meta.Hash
	}
	return ""
}

func (st *Store) Source() Source {
	if s := st.active.Load(); s != nil {
		return s.Meta.Source
	}
	return SourceUnknown
}

func (st *Store) LoadedAt() time.Time {
	if s := st.active.Load(); s != nil {
		return s.LoadedAt
	}
	return time.Time{}
}
