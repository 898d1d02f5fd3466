package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/repository"
)

/* ───────── sources ───────── */

type stubSourceRepo struct {
	sources []*entity.Source
	err     error
}

func (s *stubSourceRepo) Get(_ context.Context, id int64) (*entity.Source, error) {
	for _, src := range s.sources {
		if src.ID == id {
			return src, nil
		}
	}
	return nil, nil
}

func (s *stubSourceRepo) GetByAddress(_ context.Context, kind entity.SourceKind, address string) (*entity.Source, error) {
	for _, src := range s.sources {
		if src.Kind == kind && src.Address == address {
			return src, nil
		}
	}
	return nil, nil
}

func (s *stubSourceRepo) List(_ context.Context, _ repository.SourceFilter) ([]*entity.Source, error) {
	return s.sources, s.err
}

func (s *stubSourceRepo) ListActive(_ context.Context) ([]*entity.Source, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*entity.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Active {
			out = append(out, src)
		}
	}
	return out, nil
}

func (s *stubSourceRepo) Create(_ context.Context, src *entity.Source) error {
	src.ID = int64(len(s.sources) + 1)
	s.sources = append(s.sources, src)
	return nil
}

func (s *stubSourceRepo) SetActive(_ context.Context, id int64, active bool) error {
	for _, src := range s.sources {
		if src.ID == id {
			src.Active = active
			return nil
		}
	}
	return entity.ErrNotFound
}

/* ───────── drafts ───────── */

// stubDraftRepo enforces the (kind, url) uniqueness of the real tables.
type stubDraftRepo struct {
	mu     sync.Mutex
	drafts []*entity.Draft

	existsErr error
	insertErr error
	// hideExisting makes Exists report false so Insert hits the unique key.
	hideExisting bool
}

func (r *stubDraftRepo) Exists(_ context.Context, kind entity.SourceKind, url string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	if r.hideExisting {
		return false, nil
	}
	return r.find(kind, url) != nil, nil
}

func (r *stubDraftRepo) Insert(_ context.Context, d *entity.Draft) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	if r.find(d.SourceKind, d.SourceURL) != nil {
		return 0, fmt.Errorf("Insert: %w", repository.ErrDuplicate)
	}
	d.ID = int64(len(r.drafts) + 1)
	cp := *d
	r.drafts = append(r.drafts, &cp)
	return d.ID, nil
}

func (r *stubDraftRepo) Get(_ context.Context, id int64) (*entity.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drafts {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (r *stubDraftRepo) List(_ context.Context, _ repository.DraftFilter) ([]*entity.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.Draft(nil), r.drafts...), nil
}

func (r *stubDraftRepo) UpdateStatus(_ context.Context, id int64, status entity.DraftStatus, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drafts {
		if d.ID == id {
			d.Status = status
			d.ProcessedAt = at
			return nil
		}
	}
	return entity.ErrNotFound
}

func (r *stubDraftRepo) find(kind entity.SourceKind, url string) *entity.Draft {
	for _, d := range r.drafts {
		if d.SourceKind == kind && d.SourceURL == url {
			return d
		}
	}
	return nil
}

func (r *stubDraftRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

/* ───────── settings ───────── */

type stubSettingRepo struct {
	values map[string]string
	getErr error
	setErr error
}

func newStubSettings() *stubSettingRepo {
	return &stubSettingRepo{values: make(map[string]string)}
}

func (s *stubSettingRepo) Get(_ context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *stubSettingRepo) Set(_ context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

/* ───────── fetcher ───────── */

type fetchCall struct {
	address string
	since   time.Time
	limit   int
}

// stubFetcher serves items by source address.
type stubFetcher struct {
	items map[string][]entity.RawItem
	errs  map[string]error
	calls []fetchCall
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{items: make(map[string][]entity.RawItem), errs: make(map[string]error)}
}

func (f *stubFetcher) FetchSince(_ context.Context, src *entity.Source, since time.Time, limit int) ([]entity.RawItem, error) {
	f.calls = append(f.calls, fetchCall{address: src.Address, since: since, limit: limit})
	if err := f.errs[src.Address]; err != nil {
		return nil, err
	}
	// callers may reorder the slice
	return append([]entity.RawItem(nil), f.items[src.Address]...), nil
}

func (f *stubFetcher) addresses() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.address)
	}
	return out
}

/* ───────── notifier ───────── */

type stubNotifier struct {
	urls []string
	err  error
}

func (n *stubNotifier) NotifyDraft(_ context.Context, d *entity.Draft) error {
	n.urls = append(n.urls, d.SourceURL)
	return n.err
}

/* ───────── clock ───────── */

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// at returns a pointer to t shifted by offset.
func at(t time.Time, offset time.Duration) *time.Time {
	v := t.Add(offset)
	return &v
}

var errBoom = errors.New("boom")

var (
	_ repository.SourceRepository  = (*stubSourceRepo)(nil)
	_ repository.DraftRepository   = (*stubDraftRepo)(nil)
	_ repository.SettingRepository = (*stubSettingRepo)(nil)
)
