// Package imagesearch turns visual-search input into an image URL the
// recommendations backend can consume. Direct image URLs pass through;
// product page URLs are resolved to their og:image, first with a plain
// fetch and, for pages that only render metadata with JavaScript, a
// headless browser fallback.
package imagesearch

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type Resolver struct {
	Collector *colly.Collector
	// Headless enables the chromedp fallback. Off by default; it
	// needs a Chrome binary on the host.
	Headless bool
	Timeout  time.Duration
}

func NewResolver() *Resolver {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
	)
	return &Resolver{
		Collector: c,
		Timeout:   20 * time.Second,
	}
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".avif": true,
}

// IsImageURL reports whether the URL path already points at an image.
func IsImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// Resolve returns an image URL for the given input, fetching and
// parsing the page when the input is not an image itself.
func (r *Resolver) Resolve(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("not an http(s) URL: %q", raw)
	}
	target := u.String()
	if IsImageURL(target) {
		return target, nil
	}

	img, err := r.resolveStatic(target)
	if err == nil && img != "" {
		return img, nil
	}
	if r.Headless {
		return r.resolveHeadless(target)
	}
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("no product image found at %s", target)
}

func (r *Resolver) resolveStatic(pageURL string) (string, error) {
	var ogImage, firstImage string

	c := r.Collector.Clone()
	c.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		if ogImage == "" {
			ogImage = e.Request.AbsoluteURL(e.Attr("content"))
		}
	})
	c.OnHTML(`img[src]`, func(e *colly.HTMLElement) {
		if firstImage == "" {
			firstImage = e.Request.AbsoluteURL(e.Attr("src"))
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}
	c.Wait()

	if ogImage != "" {
		return ogImage, nil
	}
	return firstImage, nil
}

func (r *Resolver) resolveHeadless(pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, r.Timeout)
	defer cancelTimeout()

	var img string
	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`(document.querySelector('meta[property="og:image"]') || {}).content || (document.querySelector('img') || {}).src || ''`, &img),
	)
	if err != nil {
		return "", err
	}
	if img == "" {
		return "", fmt.Errorf("no product image found at %s", pageURL)
	}
	return img, nil
}
