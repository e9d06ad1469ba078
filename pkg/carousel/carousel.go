// Package carousel drives the horizontally scrolling featured-product
// strip: autoplay, scroll-position-to-page mapping and the windowed
// pagination dots.
package carousel

import (
	"context"
	"sync"
	"time"
)

const (
	// CardsPerPage groups cards into pages for the dots only;
	// scrolling itself is continuous.
	CardsPerPage = 4
	// MaxDots caps the dot window.
	MaxDots = 3

	DefaultInterval = 5 * time.Second
	DefaultDebounce = 150 * time.Millisecond
)

// Controller tracks scroll position and page index for one carousel.
// Geometry is fixed at construction; position changes arrive via
// Advance (autoplay) or OnScroll (user scrolling, debounced).
type Controller struct {
	CardWidth     int
	Gap           int
	CardCount     int
	ViewportWidth int

	// Interval and Debounce default to DefaultInterval and
	// DefaultDebounce when zero.
	Interval time.Duration
	Debounce time.Duration

	// OnPage, when set, is called with the new page index after a
	// debounced scroll settles.
	OnPage func(page int)

	mu         sync.Mutex
	scrollLeft int
	page       int
	settle     *time.Timer
}

func (c *Controller) step() int { return c.CardWidth + c.Gap }

func (c *Controller) pageWidth() int { return CardsPerPage * c.step() }

func (c *Controller) contentWidth() int {
	if c.CardCount == 0 {
		return 0
	}
	return c.CardCount*c.CardWidth + (c.CardCount-1)*c.Gap
}

// MaxScroll is the largest reachable scroll offset.
func (c *Controller) MaxScroll() int {
	m := c.contentWidth() - c.ViewportWidth
	if m < 0 {
		return 0
	}
	return m
}

// TotalPages is the dot count before windowing.
func (c *Controller) TotalPages() int {
	if c.CardCount == 0 {
		return 0
	}
	return (c.CardCount + CardsPerPage - 1) / CardsPerPage
}

// PageIndex maps a scroll offset to a page index, snapping at the
// half-page boundary.
func (c *Controller) PageIndex(scrollLeft int) int {
	pw := c.pageWidth()
	if pw == 0 {
		return 0
	}
	page := (scrollLeft + pw/2) / pw
	if last := c.TotalPages() - 1; page > last {
		page = last
	}
	if page < 0 {
		page = 0
	}
	return page
}

// Page returns the current page index.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Advance moves one card forward and returns the new scroll offset,
// looping back to zero when the next step would overscroll.
func (c *Controller) Advance() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.scrollLeft + c.step()
	if next > c.MaxScroll() {
		next = 0
	}
	c.scrollLeft = next
	c.page = c.PageIndex(next)
	return next
}

// OnScroll records a user-driven scroll offset. The page index is
// recomputed only after the position has been stable for the debounce
// window, so momentum scrolling does not thrash the dots.
func (c *Controller) OnScroll(scrollLeft int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scrollLeft = scrollLeft
	if c.settle != nil {
		c.settle.Stop()
	}
	d := c.Debounce
	if d == 0 {
		d = DefaultDebounce
	}
	c.settle = time.AfterFunc(d, func() {
		c.mu.Lock()
		c.page = c.PageIndex(c.scrollLeft)
		page, onPage := c.page, c.OnPage
		c.mu.Unlock()
		if onPage != nil {
			onPage(page)
		}
	})
}

// Dots returns the pagination dot window around the current page: all
// pages when there are at most MaxDots, otherwise the first three,
// the last three, or current±1.
func (c *Controller) Dots(current int) []int {
	total := c.TotalPages()
	if total <= MaxDots {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i
		}
		return pages
	}
	switch {
	case current <= 0:
		return []int{0, 1, 2}
	case current >= total-1:
		return []int{total - 3, total - 2, total - 1}
	default:
		return []int{current - 1, current, current + 1}
	}
}

// TargetOffset is the scroll offset for a clicked dot, clamped to the
// maximum scrollable offset.
func (c *Controller) TargetOffset(page int) int {
	offset := page * CardsPerPage * c.step()
	if m := c.MaxScroll(); offset > m {
		return m
	}
	if offset < 0 {
		return 0
	}
	return offset
}

// Autoplay advances the carousel on a fixed interval until the context
// is cancelled, reporting each new offset to tick.
func (c *Controller) Autoplay(ctx context.Context, tick func(scrollLeft int)) {
	interval := c.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick(c.Advance())
		}
	}
}
