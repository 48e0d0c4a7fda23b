package llm

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"
)

// Middleware decorates a Client to inject cross-cutting concerns.
// Retries are always user-initiated; no middleware re-issues a request.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate limiting --------

// RateLimit limits request rate using the token-bucket rpsLimiter.
// If rps <= 0, the limiter is effectively disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

// RateLimitFromEnv reads RPS/BURST from environment variables with the
// given prefixes in priority order. For example, ("LLM","GEMINI")
// checks LLM_RPS/LLM_BURST first, then GEMINI_RPS/GEMINI_BURST.
func RateLimitFromEnv(prefixes ...string) Middleware {
	find := func(suffix string) string {
		for _, p := range prefixes {
			if p == "" {
				continue
			}
			if v := os.Getenv(p + suffix); v != "" {
				return v
			}
		}
		return ""
	}
	return func(next Client) Client {
		rps, _ := strconv.ParseFloat(find("_RPS"), 64)
		burst, _ := strconv.Atoi(find("_BURST"))
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, req)
}

func (c *rateLimited) GenerateStream(ctx context.Context, req Request, onChunk func(string) error) error {
	if err := c.rl.Acquire(ctx); err != nil {
		return err
	}
	return c.next.GenerateStream(ctx, req, onChunk)
}

// -------- Logging --------

// Logging logs each call with its duration and outcome.
func Logging() Middleware {
	return func(next Client) Client {
		return &logged{next: next}
	}
}

type logged struct {
	next Client
}

func (c *logged) Name() string { return c.next.Name() }
func (c *logged) Close() error { return c.next.Close() }

func (c *logged) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.next.GenerateJSON(ctx, req)
	if err != nil {
		log.Printf("llm: %s generate failed after %s: %v", c.next.Name(), time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}
	log.Printf("llm: %s generate ok in %s (%d bytes)", c.next.Name(), time.Since(start).Round(time.Millisecond), len(raw))
	return raw, nil
}

func (c *logged) GenerateStream(ctx context.Context, req Request, onChunk func(string) error) error {
	start := time.Now()
	var chunks int
	err := c.next.GenerateStream(ctx, req, func(text string) error {
		chunks++
		return onChunk(text)
	})
	if err != nil {
		log.Printf("llm: %s stream failed after %s (%d chunks): %v", c.next.Name(), time.Since(start).Round(time.Millisecond), chunks, err)
		return err
	}
	log.Printf("llm: %s stream ok in %s (%d chunks)", c.next.Name(), time.Since(start).Round(time.Millisecond), chunks)
	return nil
}
