// Package tokenizer counts and truncates text in model tokens.
package tokenizer

import (
	"math"
	"strings"
	"sync"
	"time"

	"healthpulse/internal/logger"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/singleflight"
)

// fallbackEncoding is used when a model has no known encoding.
const fallbackEncoding = "cl100k_base"

// charsPerToken approximates tokens when no encoding can be loaded.
const charsPerToken = 4

// DefaultRetryAfter is how long a failed encoding load is served by the
// estimate before it is attempted again.
const DefaultRetryAfter = time.Minute

// Encoding converts between text and token ids.
type Encoding interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Loader resolves the encoding for a model id.
type Loader func(model string) (Encoding, error)

type encodingEntry struct {
	enc      Encoding
	failedAt time.Time
}

// Counter caches one encoding per model. Loads run outside the lock and
// are shared by concurrent callers. A model whose encoding failed to load
// is served by the character-ratio estimate until RetryAfter has passed.
type Counter struct {
	mu         sync.Mutex
	load       Loader
	encodings  map[string]encodingEntry
	loads      singleflight.Group
	retryAfter time.Duration
	now        func() time.Time
	log        *logger.Logger
}

func NewCounter(log *logger.Logger) *Counter {
	return NewCounterWithLoader(TiktokenLoader, log)
}

func NewCounterWithLoader(load Loader, log *logger.Logger) *Counter {
	if log == nil {
		log = logger.Nop()
	}
	return &Counter{
		load:       load,
		encodings:  make(map[string]encodingEntry),
		retryAfter: DefaultRetryAfter,
		now:        time.Now,
		log:        log.With("component", "tokenizer"),
	}
}

// TiktokenLoader loads the tiktoken encoding for model, falling back to
// cl100k_base for models tiktoken does not know.
func TiktokenLoader(model string) (Encoding, error) {
	tk, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tk, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	return tiktokenEncoding{tk: tk}, nil
}

type tiktokenEncoding struct {
	tk *tiktoken.Tiktoken
}

func (e tiktokenEncoding) Encode(text string) []int {
	return e.tk.Encode(text, nil, nil)
}

func (e tiktokenEncoding) Decode(tokens []int) string {
	return e.tk.Decode(tokens)
}

func (c *Counter) encoding(model string) Encoding {
	key := strings.ToLower(strings.TrimSpace(model))
	c.mu.Lock()
	entry, ok := c.encodings[key]
	c.mu.Unlock()
	if ok && (entry.enc != nil || c.now().Sub(entry.failedAt) < c.retryAfter) {
		return entry.enc
	}
	if c.load == nil {
		return nil
	}

	v, _, _ := c.loads.Do(key, func() (interface{}, error) {
		enc, err := c.load(key)
		entry := encodingEntry{enc: enc}
		if err != nil || enc == nil {
			c.log.Warn("token encoding unavailable, using estimate", "model", key, "error", err)
			entry = encodingEntry{failedAt: c.now()}
		}
		c.mu.Lock()
		c.encodings[key] = entry
		c.mu.Unlock()
		return entry.enc, nil
	})
	enc, _ := v.(Encoding)
	return enc
}

// Count returns the number of tokens text occupies for model.
func (c *Counter) Count(text, model string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(model); enc != nil {
		return len(enc.Encode(text))
	}
	return Estimate(text)
}

// Estimate approximates a token count as one token per four characters.
func Estimate(text string) int {
	n := len([]rune(text))
	return int(math.Ceil(float64(n) / charsPerToken))
}

// Truncate cuts text to at most limit tokens for model, on a token boundary
// when an encoding is available and proportionally by characters otherwise.
// It reports whether anything was removed.
func (c *Counter) Truncate(text string, limit int, model string) (string, bool) {
	if limit <= 0 {
		return "", text != ""
	}
	if enc := c.encoding(model); enc != nil {
		tokens := enc.Encode(text)
		if len(tokens) <= limit {
			return text, false
		}
		return enc.Decode(tokens[:limit]), true
	}

	count := Estimate(text)
	if count <= limit {
		return text, false
	}
	runes := []rune(text)
	keep := len(runes) * limit / count
	return string(runes[:keep]), true
}

// Close drops cached encodings.
func (c *Counter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodings = make(map[string]encodingEntry)
}
