// Package search implements the debounced autocomplete controller behind the
// city search box.
//
// A Controller owns all of its state on one event-loop goroutine, the way a UI
// event loop would. Keystrokes, focus changes and pointer events are posted to
// the loop; the debounce timer and gateway calls post their results back to it.
// Every settled query bumps a generation counter, and a gateway answer is only
// applied when it still belongs to the current generation, so a slow answer
// for an old query can never overwrite a newer list.
//
// Transport failures keep the last good candidate list on screen and set
// View.Err. Schema violations clear the list: the query simply has no
// candidates.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/debounce"
	"github.com/PetoAdam/homenavi/citysearch/internal/geocode"
	"github.com/PetoAdam/homenavi/citysearch/internal/keynav"
	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/observability"
	"github.com/PetoAdam/homenavi/citysearch/internal/owm"
	"github.com/PetoAdam/homenavi/citysearch/internal/selection"
)

// DefaultDelay is how long the query must stay unchanged before it is searched.
const DefaultDelay = 300 * time.Millisecond

// ErrClosed is returned by Snapshot once the controller has been torn down.
var ErrClosed = errors.New("search controller closed")

type Item struct {
	Label    string      `json:"label"`
	Selected bool        `json:"selected"`
	City     models.City `json:"city"`
}

// View is everything a renderer needs to draw the search box and dropdown.
type View struct {
	Query    string `json:"query"`
	Settled  string `json:"settled"`
	Focused  bool   `json:"focused"`
	Open     bool   `json:"open"`
	Items    []Item `json:"items"`
	Selected int    `json:"selected"`
	Loading  bool   `json:"loading"`
	Err      string `json:"error,omitempty"`
}

type Option func(*Controller)

func WithDelay(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

func WithBindings(b keynav.Bindings) Option {
	return func(c *Controller) { c.keys = keynav.New(b) }
}

// WithRenderer receives a fresh View after every state change.
func WithRenderer(fn func(View)) Option {
	return func(c *Controller) { c.render = fn }
}

// WithNavigator receives the coordinates of every committed candidate.
func WithNavigator(fn func(models.Coordinates)) Option {
	return func(c *Controller) { c.navigate = fn }
}

func WithAfterFunc(fn debounce.AfterFunc) Option {
	return func(c *Controller) { c.afterFunc = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

type Controller struct {
	gateway   geocode.Searcher
	keys      *keynav.Handler
	delay     time.Duration
	afterFunc debounce.AfterFunc
	render    func(View)
	navigate  func(models.Coordinates)
	log       *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan func()
	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	out       *outbox

	// Owned by the loop goroutine.
	query        string
	settled      string
	generation   uint64
	loading      bool
	err          error
	focused      bool
	suppressBlur bool
	list         *selection.List[models.City]
	debouncer    *debounce.Debouncer[string]
}

// New starts a controller. Call Close to tear it down.
func New(gateway geocode.Searcher, opts ...Option) *Controller {
	c := &Controller{
		gateway:  gateway,
		keys:     keynav.New(keynav.DefaultBindings()),
		delay:    DefaultDelay,
		log:      slog.Default(),
		events:   make(chan func(), 64),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		list:     selection.New[models.City](nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "search")
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.out = newOutbox(c.done, c.render, c.navigate)

	var dopts []debounce.Option[string]
	if c.afterFunc != nil {
		dopts = append(dopts, debounce.WithAfterFunc[string](c.afterFunc))
	}
	c.debouncer = debounce.New("", c.delay, func(q string) {
		c.post(func() { c.settle(q) })
	}, dopts...)

	go c.loop()
	go c.out.run()
	return c
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.done:
			return
		case fn := <-c.events:
			// Close may have raced with this receive.
			select {
			case <-c.done:
				return
			default:
			}
			fn()
		}
	}
}

func (c *Controller) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	}
}

// Close cancels the pending debounce timer and stops the loop. Gateway answers
// that arrive later are discarded. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.debouncer.Stop()
		close(c.done)
		c.cancel()
		<-c.loopDone
	})
}

// Done is closed once the controller is torn down.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Input records the text box contents after a keystroke.
func (c *Controller) Input(text string) {
	c.post(func() {
		if text == c.query {
			return
		}
		c.query = text
		c.debouncer.Set(text)
		c.emit()
	})
}

func (c *Controller) Focus() {
	c.post(func() {
		c.suppressBlur = false
		if c.focused {
			return
		}
		c.focused = true
		c.emit()
	})
}

// Blur is ignored while a press on a dropdown item is pending, so the click
// that follows still lands.
func (c *Controller) Blur() {
	c.post(func() {
		if c.suppressBlur || !c.focused {
			return
		}
		c.focused = false
		c.emit()
	})
}

// Key routes a key press to the navigation handler while focused. Unbound keys
// are ignored.
func (c *Controller) Key(name string) {
	c.post(func() {
		if !c.focused {
			return
		}
		if c.keys.Handle(name, loopTarget{c}) {
			c.emit()
		}
	})
}

// Hover highlights the item under the pointer, same as arrowing onto it.
func (c *Controller) Hover(i int) {
	c.post(func() {
		if !c.focused {
			return
		}
		if cur, ok := c.list.Index(); ok && cur == i {
			return
		}
		if c.list.Hover(i) {
			c.emit()
		}
	})
}

// MouseDown marks a press on item i. Until the matching Click or MouseUp the
// search box keeps its focus.
func (c *Controller) MouseDown(i int) {
	c.post(func() {
		if !c.focused || i < 0 || i >= c.list.Len() {
			return
		}
		c.suppressBlur = true
	})
}

// MouseUp ends a press that did not turn into a click.
func (c *Controller) MouseUp() {
	c.post(func() { c.suppressBlur = false })
}

// Click commits item i through the same path as the commit key.
func (c *Controller) Click(i int) {
	c.post(func() {
		c.suppressBlur = false
		if !c.focused || !c.list.Hover(i) {
			return
		}
		c.commit()
		c.emit()
	})
}

// Snapshot returns the current view as seen by the loop.
func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !c.post(func() { reply <- c.view() }) {
		return View{}, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-c.done:
		return View{}, ErrClosed
	}
}

func (c *Controller) settle(q string) {
	// A timer callback that lost the race with a newer settle arrives late.
	if q != c.debouncer.Value() {
		c.log.Debug("dropping out of order settle", "query", q, "current", c.debouncer.Value())
		return
	}
	c.settled = q
	c.generation++
	gen := c.generation
	c.err = nil

	if strings.TrimSpace(q) == "" {
		c.loading = false
		c.list.Replace(nil)
		c.emit()
		return
	}

	c.loading = true
	c.emit()
	c.log.Debug("query settled", "query", q, "generation", gen)

	go func() {
		res, err := c.gateway.Search(c.ctx, q)
		c.post(func() { c.apply(gen, q, res, err) })
	}()
}

func (c *Controller) apply(gen uint64, q string, res models.SearchResult, err error) {
	if gen != c.generation || q != c.settled {
		observability.StaleResults.Inc()
		c.log.Debug("dropping stale result", "query", q, "generation", gen, "current", c.generation)
		return
	}
	c.loading = false

	if err != nil {
		c.err = err
		if errors.Is(err, owm.ErrInvalidPayload) {
			c.list.Replace(nil)
		}
		c.log.Warn("search failed", "query", q, "error", err)
		c.emit()
		return
	}

	c.err = nil
	c.list.Replace(res.Cities)
	c.emit()
}

func (c *Controller) commit() {
	city, ok := c.list.Commit()
	if !ok {
		return
	}
	c.log.Info("candidate committed", "name", city.Name, "country", city.Country.Code, "lat", city.Lat, "lon", city.Lon)
	c.out.navigate(city.Coordinates())
}

func (c *Controller) view() View {
	v := View{
		Query:    c.query,
		Settled:  c.settled,
		Focused:  c.focused,
		Loading:  c.loading,
		Selected: -1,
		Items:    []Item{},
	}
	if c.err != nil {
		v.Err = c.err.Error()
	}
	sel, ok := c.list.Index()
	if ok {
		v.Selected = sel
	}
	for i, city := range c.list.Items() {
		v.Items = append(v.Items, Item{Label: city.Label(), Selected: ok && i == sel, City: city})
	}
	v.Open = c.focused && len(v.Items) > 0
	return v
}

func (c *Controller) emit() {
	c.out.view(c.view())
}

// loopTarget gives the key handler access to the live list on the loop.
type loopTarget struct{ c *Controller }

func (t loopTarget) MovePrevious() { t.c.list.Prev() }
func (t loopTarget) MoveNext()     { t.c.list.Next() }
func (t loopTarget) Commit()       { t.c.commit() }
