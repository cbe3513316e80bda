package views

import (
	"context"
	"errors"
	"maps"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/models/reports"
	"github.com/mmdatafocus/estate_console/utils"
	"github.com/sirupsen/logrus"
)

// ErrSuperseded is returned by Refresh when a newer refresh of the same view
// started before this one finished; its response was dropped.
var ErrSuperseded = errors.New("response superseded by a newer request")

// Upstream is the part of the backend client the views use.
type Upstream interface {
	GetCollection(ctx context.Context, path string, query url.Values) ([]models.Record, int, error)
	Send(ctx context.Context, method, path string, payload any) (any, error)
}

// Registry owns the open view sessions.
type Registry struct {
	upstream Upstream
	mutator  *Mutator
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(upstream Upstream, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = config.DefaultViewTTL
	}
	return &Registry{
		upstream: upstream,
		mutator:  NewMutator(upstream),
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

func (r *Registry) Mutator() *Mutator {
	return r.mutator
}

// OpenRequest opens a report screen. Restore names a previous view whose
// persisted state should be carried over, e.g. after a browser reload.
type OpenRequest struct {
	Report  string            `json:"report" binding:"required"`
	Params  map[string]string `json:"params"`
	Restore string            `json:"restore"`
}

// Open creates a session and runs its first fetch. The session is returned
// even when the fetch fails; it then shows an empty state with the error.
func (r *Registry) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	report, err := reports.LookupReport(req.Report)
	if err != nil {
		return nil, err
	}
	s := newSession(uuid.NewString(), ownerOf(ctx), report, req.Params, r.now())
	r.initialState(ctx, s, req.Restore)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return s, r.Refresh(ctx, s, nil)
}

func (r *Registry) initialState(ctx context.Context, s *Session, restore string) {
	if restore != "" {
		state, ok, err := models.LoadViewState(ctx, restore, s.Owner)
		if err != nil {
			config.LogError(config.GetLogger(), "registry.go", "initialState", "restoring view state", restore, err)
		}
		if ok {
			s.setState(state)
			return
		}
	}
	saved, err := models.GetDefaultSavedFilter(ctx, s.Report.Name)
	if err != nil {
		if !errors.Is(err, models.ErrDatabaseUnavailable) && !errors.Is(err, utils.ErrorUnauthorized) {
			config.LogError(config.GetLogger(), "registry.go", "initialState", "loading default saved filter", s.Report.Name, err)
		}
		return
	}
	if saved != nil {
		s.setState(saved.State)
	}
}

// ownerOf identifies the caller: the signed-in username, or the raw token when
// tokens are not validated locally.
func ownerOf(ctx context.Context) string {
	if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
		return username
	}
	token, _ := utils.GetTokenFromContext(ctx)
	return token
}

// Get returns the caller's session; another user's view id is reported as not found.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrViewNotFound
	}
	if s.Owner != ownerOf(ctx) {
		return nil, models.ErrViewNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Refresh re-fetches the records and reference tables of s. Non-nil params
// replace the query; a change resets filters, sort and page.
//
// On failure the collection becomes empty and the error is kept on the session.
// If another Refresh started meanwhile, this one's response is discarded.
func (r *Registry) Refresh(ctx context.Context, s *Session, params map[string]string) error {
	if params != nil {
		s.setParams(params)
	}
	current := s.Params()
	if missing := s.Report.MissingParams(current); len(missing) > 0 {
		fields := map[string]string{}
		for _, p := range missing {
			fields[p] = "required"
		}
		err := &models.ValidationError{Fields: fields}
		token := s.Store.Begin()
		s.Store.Commit(token, nil)
		s.setOutcome(0, err)
		return err
	}

	token := s.Store.Begin()
	load := r.referenceLoader(ctx)

	var wg sync.WaitGroup
	for _, src := range s.Report.References {
		wg.Add(1)
		go func(src reports.ReferenceSource) {
			defer wg.Done()
			table, err := load(ctx, src)
			if err != nil {
				// labels show as Unknown until the next refresh
				config.LogError(config.GetLogger(), "registry.go", "Refresh", "loading reference table", src.Name, err)
				return
			}
			if s.Store.Current(token) {
				s.Store.SetReference(table)
			}
		}(src)
	}

	path, query := s.Report.EndpointFor(current)
	records, total, err := r.upstream.GetCollection(ctx, path, query)
	wg.Wait()

	if err != nil {
		config.LogError(config.GetLogger(), "registry.go", "Refresh", "fetching "+s.Report.Name, path, err)
		if !s.Store.Commit(token, nil) {
			return ErrSuperseded
		}
		s.setOutcome(0, err)
		return err
	}
	if !s.Store.Commit(token, records) {
		return ErrSuperseded
	}
	s.setOutcome(total, nil)
	r.persist(ctx, s)
	return nil
}

func (r *Registry) referenceLoader(ctx context.Context) ReferenceLoader {
	if loader, ok := referenceLoaderFrom(ctx); ok {
		return loader
	}
	return func(ctx context.Context, src reports.ReferenceSource) (*models.ReferenceTable, error) {
		return FetchReference(ctx, r.upstream, src)
	}
}

// Query applies q to the session state and computes the visible page.
// An invalid query leaves the state unchanged.
func (r *Registry) Query(ctx context.Context, s *Session, q Query) (Page, error) {
	s.mu.Lock()
	next := copyState(s.state)
	if err := q.apply(&next, s.Report.Fields); err != nil {
		s.mu.Unlock()
		return r.page(s), err
	}
	s.state = next
	s.mu.Unlock()

	page := r.page(s)
	r.persist(ctx, s)
	return page, nil
}

// ApplySavedFilter replaces the view state with a saved one, starting on page 1.
func (r *Registry) ApplySavedFilter(ctx context.Context, s *Session, id int) (Page, error) {
	saved, err := models.GetSavedFilter(ctx, s.Report.Name, id)
	if err != nil {
		return r.page(s), err
	}
	state := saved.State
	state.Page.Index = 1
	s.setState(state)
	page := r.page(s)
	r.persist(ctx, s)
	return page, nil
}

// Page renders the session with its current state.
func (r *Registry) Page(s *Session) Page {
	return r.page(s)
}

func (r *Registry) page(s *Session) Page {
	s.mu.Lock()
	state := copyState(s.state)
	s.mu.Unlock()

	result := reports.Compute(s.Store, s.Report.Fields, &state)

	s.mu.Lock()
	s.state.Page = state.Page
	params := maps.Clone(s.params)
	total := s.total
	lastError := s.lastError
	state = copyState(s.state)
	s.mu.Unlock()

	return newPage(s, params, state, result, total, lastError)
}

func (r *Registry) persist(ctx context.Context, s *Session) {
	if err := models.StoreViewState(ctx, s.ID, s.Owner, s.State(), r.ttl); err != nil {
		config.LogError(config.GetLogger(), "registry.go", "persist", "storing view state", s.ID, err)
	}
}

// Export builds the table of every record matching the view state, in display order.
func (r *Registry) Export(s *Session) reports.Table {
	state := s.State()
	records := reports.Ordered(s.Store, s.Report.Fields, state)
	return reports.BuildTable(s.Report.Title, s.Report.ContextLine(s.Params(), s.Store), records, s.Report.Fields, s.Store)
}

func (r *Registry) Close(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	r.remove(ctx, id)
	return nil
}

func (r *Registry) remove(ctx context.Context, id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	if err := models.RemoveViewState(ctx, id); err != nil {
		config.LogError(config.GetLogger(), "registry.go", "remove", "removing view state", id, err)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many went.
// Persisted state outlives the session until its own TTL so a reload can restore it.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if now.Sub(s.idleSince()) > r.ttl {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				config.GetLogger().WithFields(logrus.Fields{"module": "views", "evicted": n, "open": r.Len()}).Info("swept idle views")
			}
		}
	}
}
