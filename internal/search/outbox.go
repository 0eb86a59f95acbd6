package search

import (
	"sync"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"
)

type outMsg struct {
	view *View
	nav  *models.Coordinates
}

// outbox delivers views and navigations to the consumer callbacks on a
// goroutine of its own, so a callback that posts back into the controller
// cannot stall the loop. Consecutive views collapse into the newest one;
// navigations are never dropped.
type outbox struct {
	mu      sync.Mutex
	queue   []outMsg
	wake    chan struct{}
	done    <-chan struct{}
	render  func(View)
	onNavig func(models.Coordinates)
}

func newOutbox(done <-chan struct{}, render func(View), navigate func(models.Coordinates)) *outbox {
	return &outbox{
		wake:    make(chan struct{}, 1),
		done:    done,
		render:  render,
		onNavig: navigate,
	}
}

func (o *outbox) view(v View) {
	if o.render == nil {
		return
	}
	o.mu.Lock()
	if n := len(o.queue); n > 0 && o.queue[n-1].view != nil {
		o.queue[n-1].view = &v
	} else {
		o.queue = append(o.queue, outMsg{view: &v})
	}
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) navigate(c models.Coordinates) {
	if o.onNavig == nil {
		return
	}
	o.mu.Lock()
	o.queue = append(o.queue, outMsg{nav: &c})
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) run() {
	for {
		select {
		case <-o.done:
			return
		case <-o.wake:
		}
		for {
			o.mu.Lock()
			if len(o.queue) == 0 {
				o.mu.Unlock()
				break
			}
			msg := o.queue[0]
			o.queue = o.queue[1:]
			o.mu.Unlock()

			select {
			case <-o.done:
				return
			default:
			}
			switch {
			case msg.view != nil:
				o.render(*msg.view)
			case msg.nav != nil:
				o.onNavig(*msg.nav)
			}
		}
	}
}
