package scraper

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// blockedURLPatterns keeps images, styling and media off the wire; the
// extraction only reads the DOM.
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.css", "*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.avi",
}

// ChromeBrowser is the chromedp-backed Browser implementation.
type ChromeBrowser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeBrowser starts a headless Chrome allocator.
func NewChromeBrowser(headless bool) (*ChromeBrowser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeBrowser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// NewPage opens a fresh tab with the requested user agent and sub-resource
// blocking applied.
func (b *ChromeBrowser) NewPage(_ context.Context, opts PageOptions) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)

	actions := []chromedp.Action{
		network.Enable(),
		network.SetBlockedURLs(blockedURLPatterns),
	}
	if opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(opts.UserAgent))
	}

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		tabCancel()
		return nil, err
	}

	return &chromePage{ctx: tabCtx, cancel: tabCancel}, nil
}

// Close shuts the allocator and every remaining tab down.
func (b *ChromeBrowser) Close() error {
	b.allocCancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// runCtx carries the caller's deadline onto the chromedp context chain.
func (p *chromePage) runCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(p.ctx, deadline)
	}
	return context.WithCancel(p.ctx)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := p.runCtx(ctx)
	defer cancel()

	return chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, bool, error) {
	runCtx, cancel := p.runCtx(ctx)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)))
	if err != nil {
		return "", false, err
	}
	if len(nodes) == 0 {
		return "", false, nil
	}

	var text string
	if err := chromedp.Run(runCtx, chromedp.TextContent(selector, &text, chromedp.ByQuery)); err != nil {
		return "", false, err
	}

	return text, true, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
