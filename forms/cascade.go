package forms

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/mmdatafocus/estate_console/models"
)

var (
	ErrUnknownChain = errors.New("unknown dropdown chain")
	ErrUnknownLevel = errors.New("unknown dropdown level")
	// ErrStaleSelection means a newer selection on the same cascade started
	// before the options of this one arrived; they were discarded.
	ErrStaleSelection = errors.New("selection superseded")
)

// Level is one dropdown of a chain. Endpoint lists the level's options and
// may hold a {parent} placeholder for the selected value of the level above.
type Level struct {
	Key      string
	Table    string
	Endpoint string
	IDKey    string
	LabelKey string
}

func (l Level) path(parent string) (string, url.Values) {
	path, rawQuery, _ := strings.Cut(l.Endpoint, "?")
	path = strings.ReplaceAll(path, "{parent}", url.PathEscape(parent))
	query, _ := url.ParseQuery(rawQuery)
	return path, query
}

// Chain is an ordered set of dependent dropdowns, parent first.
type Chain struct {
	Name   string
	Levels []Level
}

func (c Chain) index(key string) int {
	for i, l := range c.Levels {
		if l.Key == key {
			return i
		}
	}
	return -1
}

var chains = map[string]Chain{
	"location": {
		Name: "location",
		Levels: []Level{
			{Key: "country_id", Table: "countries", Endpoint: "/countries"},
			{Key: "state_id", Table: "states", Endpoint: "/countries/{parent}/states"},
			{Key: "district_id", Table: "districts", Endpoint: "/states/{parent}/districts"},
		},
	},
	"property": {
		Name: "property",
		Levels: []Level{
			{Key: "venture_id", Table: "ventures", Endpoint: "/ventures"},
			{Key: "property_id", Table: "properties", Endpoint: "/ventures/{parent}/properties?status=available", LabelKey: "plot_no"},
		},
	},
}

func LookupChain(name string) (Chain, error) {
	c, ok := chains[name]
	if !ok {
		return Chain{}, ErrUnknownChain
	}
	return c, nil
}

// Selection is the value chosen per level key; an empty value is no choice.
type Selection map[string]string

// Change is the outcome of selecting a value on one level.
type Change struct {
	Selection Selection       `json:"selection"`
	Cleared   []string        `json:"cleared"`
	Child     string          `json:"child,omitempty"`
	Options   []models.Option `json:"options"`
}

// Cascade tracks the selections of one chain on one form.
type Cascade struct {
	chain    Chain
	upstream Upstream

	mu        sync.Mutex
	selection Selection
	token     uint64
}

func NewCascade(chain Chain, upstream Upstream, initial Selection) *Cascade {
	sel := Selection{}
	for _, l := range chain.Levels {
		if v := initial[l.Key]; v != "" {
			sel[l.Key] = v
		}
	}
	return &Cascade{chain: chain, upstream: upstream, selection: sel}
}

func (c *Cascade) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(Selection, len(c.selection))
	for k, v := range c.selection {
		out[k] = v
	}
	return out
}

// Options fetches the choices of the top level.
func (c *Cascade) Options(ctx context.Context) ([]models.Option, error) {
	if len(c.chain.Levels) == 0 {
		return nil, nil
	}
	return c.fetch(ctx, c.chain.Levels[0], "")
}

// Select sets level to value. Every level below it is cleared at once, before
// any fetch; then the options of the next level are loaded for the new value.
// When another Select runs on the cascade meanwhile, this one returns
// ErrStaleSelection and its options are dropped.
func (c *Cascade) Select(ctx context.Context, level, value string) (Change, error) {
	i := c.chain.index(level)
	if i < 0 {
		return Change{}, ErrUnknownLevel
	}

	c.mu.Lock()
	c.token++
	token := c.token
	change := Change{Cleared: []string{}}
	if value == "" {
		delete(c.selection, level)
	} else {
		c.selection[level] = value
	}
	for _, l := range c.chain.Levels[i+1:] {
		if _, ok := c.selection[l.Key]; ok {
			delete(c.selection, l.Key)
			change.Cleared = append(change.Cleared, l.Key)
		}
	}
	c.mu.Unlock()

	change.Options = []models.Option{}
	if value != "" && i+1 < len(c.chain.Levels) {
		child := c.chain.Levels[i+1]
		change.Child = child.Key
		opts, err := c.fetch(ctx, child, value)
		if err != nil {
			return Change{}, err
		}
		change.Options = opts
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != token {
		return Change{}, ErrStaleSelection
	}
	change.Selection = make(Selection, len(c.selection))
	for k, v := range c.selection {
		change.Selection[k] = v
	}
	return change, nil
}

func (c *Cascade) fetch(ctx context.Context, l Level, parent string) ([]models.Option, error) {
	path, query := l.path(parent)
	rows, _, err := c.upstream.GetCollection(ctx, path, query)
	if err != nil {
		return nil, err
	}
	opts := models.NewReferenceTable(l.Table, l.IDKey, l.LabelKey, rows).Options()
	if opts == nil {
		opts = []models.Option{}
	}
	return opts, nil
}
