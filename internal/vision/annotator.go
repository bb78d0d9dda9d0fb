// Package vision turns image locators attached to reviews into short text descriptions.
package vision

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hyperjump/kuchikomi/pkg/utils"
)

// Sentinel descriptions.
const (
	NoImages       = "No images provided."
	ImageNotParsed = "Image could not be analyzed."
)

const defaultConcurrency = 4

// Event reports the outcome of one image.
type Event struct {
	Index   int
	Total   int
	Locator string
	Err     error
}

// ProgressFunc receives an Event after each image is processed. It may be called concurrently.
type ProgressFunc func(Event)

// Annotator fetches and describes images with per-image failure isolation.
type Annotator struct {
	fetcher      Fetcher
	describer    Describer
	prompt       string
	maxTokens    int
	fetchTimeout time.Duration
	concurrency  int
	limiter      *rate.Limiter
	progress     ProgressFunc
	logger       *zap.Logger
}

// AnnotatorOption configures an Annotator.
type AnnotatorOption func(*Annotator)

// WithLogger sets the logger for per-image events.
func WithLogger(l *zap.Logger) AnnotatorOption {
	return func(a *Annotator) { a.logger = l }
}

// WithPrompt overrides the description prompt.
func WithPrompt(prompt string) AnnotatorOption {
	return func(a *Annotator) {
		if prompt != "" {
			a.prompt = prompt
		}
	}
}

// WithMaxTokens overrides the response length cap.
func WithMaxTokens(n int) AnnotatorOption {
	return func(a *Annotator) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithFetchTimeout bounds each image download.
func WithFetchTimeout(d time.Duration) AnnotatorOption {
	return func(a *Annotator) {
		if d > 0 {
			a.fetchTimeout = d
		}
	}
}

// WithConcurrency bounds the number of images processed at once.
func WithConcurrency(n int) AnnotatorOption {
	return func(a *Annotator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithRateLimit throttles describe calls to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) AnnotatorOption {
	return func(a *Annotator) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithProgress registers a callback invoked after each image.
func WithProgress(fn ProgressFunc) AnnotatorOption {
	return func(a *Annotator) { a.progress = fn }
}

// NewAnnotator creates an annotator over the given fetcher and describer.
func NewAnnotator(fetcher Fetcher, describer Describer, opts ...AnnotatorOption) *Annotator {
	a := &Annotator{
		fetcher:      fetcher,
		describer:    describer,
		prompt:       DefaultPrompt,
		maxTokens:    DefaultMaxTokens,
		fetchTimeout: DefaultFetchTimeout,
		concurrency:  defaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = utils.OrNop(a.logger)
	return a
}

// DescribeAll returns one description per locator, in input order. A locator whose
// fetch or description fails yields ImageNotParsed; an empty list yields [NoImages].
func (a *Annotator) DescribeAll(ctx context.Context, locators []string) []string {
	if len(locators) == 0 {
		return []string{NoImages}
	}
	out := make([]string, len(locators))
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for i, loc := range locators {
		g.Go(func() error {
			desc, err := a.describeOne(ctx, loc)
			if err != nil {
				a.logger.Warn("image failed",
					zap.Int("index", i+1),
					zap.Int("total", len(locators)),
					zap.String("locator", loc),
					zap.Error(err))
				desc = ImageNotParsed
			} else {
				a.logger.Debug("image analyzed",
					zap.Int("index", i+1),
					zap.Int("total", len(locators)))
			}
			out[i] = desc
			if a.progress != nil {
				a.progress(Event{Index: i, Total: len(locators), Locator: loc, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Annotator) describeOne(ctx context.Context, locator string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	image, err := a.fetcher.Fetch(fetchCtx, locator)
	cancel()
	if err != nil {
		return "", err
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	return a.describer.Describe(ctx, image, a.prompt, a.maxTokens)
}
