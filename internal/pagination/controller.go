// Package pagination drives incremental loading of the conversation list:
// fixed page size, a "has more" flag derived from short pages, and a scroll
// sentinel that requests the next page at most once per position.
package pagination

import (
	"context"
	"sync"
)

// DefaultPageSize matches the admin conversation listing page size.
const DefaultPageSize = 15

// FetchFunc loads one page and returns how many items the server sent back.
// A short page (count < limit) marks the listing as exhausted.
type FetchFunc func(ctx context.Context, limit, offset int) (count int, err error)

type Controller struct {
	mu       sync.Mutex
	pageSize int
	page     int
	hasMore  bool
	inFlight bool
	fetch    FetchFunc
}

func NewController(pageSize int, fetch FetchFunc) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		pageSize: pageSize,
		hasMore:  true,
		fetch:    fetch,
	}
}

// LoadMore fetches the next page. It is a no-op while a fetch is in flight or
// once the listing is exhausted; a fetch error leaves the cursor unchanged so
// the page can be retried.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	page := c.page
	limit := c.pageSize
	c.mu.Unlock()

	count, err := c.fetch(ctx, limit, page*limit)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		incFetch("error")
		return err
	}
	incFetch("ok")
	// Guard against a Reset that raced the fetch.
	if c.page != page {
		return nil
	}
	c.page++
	if count < limit {
		c.hasMore = false
	}
	return nil
}

// Reset rewinds to page zero, e.g. when the search/status/assignee filters
// change. Already-rendered entries are the merge engine's problem, not ours.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = 0
	c.hasMore = true
}

func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Sentinel is the viewport trigger for infinite scroll: when the last visible
// index enters the trailing margin of the rendered list it fires LoadMore,
// at most once per scroll position.
type Sentinel struct {
	mu          sync.Mutex
	margin      int
	lastTrigger int
	ctrl        *Controller
}

func NewSentinel(ctrl *Controller, margin int) *Sentinel {
	if margin < 0 {
		margin = 0
	}
	return &Sentinel{
		margin:      margin,
		lastTrigger: -1,
		ctrl:        ctrl,
	}
}

// Observe reports the current scroll position: the index of the last visible
// item and the total number of rendered items.
func (s *Sentinel) Observe(ctx context.Context, lastVisible, total int) error {
	if total == 0 || lastVisible < total-1-s.margin {
		return nil
	}

	s.mu.Lock()
	if lastVisible == s.lastTrigger {
		s.mu.Unlock()
		return nil
	}
	s.lastTrigger = lastVisible
	s.mu.Unlock()

	return s.ctrl.LoadMore(ctx)
}

// Reset clears the trigger position alongside a Controller.Reset.
func (s *Sentinel) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTrigger = -1
}
