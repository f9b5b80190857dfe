package kafka

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// ErrSkip returned from BeforeHandle drops the message without running the
// handler. It is not reported as a failure.
var ErrSkip = errors.New("kafka: message skipped")

// ConsumerHook runs around every handled message.
// A non-nil error from BeforeHandle skips the handler; AfterHandle still
// sees the message together with that error.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, msg kafka.Message) (context.Context, error)
	AfterHandle(ctx context.Context, msg kafka.Message, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ kafka.Message) (context.Context, error) {
	return ctx, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, error) {}

// HookError is an error raised by a hook rather than the handler.
type HookError struct {
	Code string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

// HookFuncs adapts plain functions to ConsumerHook. Nil funcs are no-ops.
type HookFuncs struct {
	Before func(context.Context, kafka.Message) (context.Context, error)
	After  func(context.Context, kafka.Message, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, msg kafka.Message) (context.Context, error) {
	if h.Before == nil {
		return ctx, nil
	}
	return h.Before(ctx, msg)
}

func (h HookFuncs) AfterHandle(ctx context.Context, msg kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, msg, err)
	}
}

// HookChain runs BeforeHandle in order, threading the context, and stops at
// the first error. AfterHandle runs in reverse order. A panicking hook is
// turned into an ERR_PANIC HookError on the way in and ignored on the way out.
type HookChain struct {
	hooks []ConsumerHook
}

// NewHookChain composes hooks, ignoring nils.
func NewHookChain(hooks ...ConsumerHook) *HookChain {
	filtered := make([]ConsumerHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return &HookChain{hooks: filtered}
}

func (c *HookChain) BeforeHandle(ctx context.Context, msg kafka.Message) (context.Context, error) {
	cur := ctx
	for _, h := range c.hooks {
		next, err := safeBefore(h, cur, msg)
		if err != nil {
			return cur, err
		}
		cur = next
	}
	return cur, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, msg kafka.Message, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		safeAfter(c.hooks[i], ctx, msg, err)
	}
}

// SkipKey drops messages whose key equals key, such as a producer's own
// writes read back from a shared topic.
func SkipKey(key []byte) ConsumerHook {
	return HookFuncs{Before: func(ctx context.Context, msg kafka.Message) (context.Context, error) {
		if len(key) > 0 && bytes.Equal(msg.Key, key) {
			return ctx, ErrSkip
		}
		return ctx, nil
	}}
}

func safeBefore(h ConsumerHook, ctx context.Context, msg kafka.Message) (next context.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = ctx, &HookError{Code: "ERR_PANIC", Err: fmt.Errorf("hook panic: %v", r)}
		}
	}()
	next, err = h.BeforeHandle(ctx, msg)
	if next == nil {
		next = ctx
	}
	return next, err
}

func safeAfter(h ConsumerHook, ctx context.Context, msg kafka.Message, err error) {
	defer func() {
		// hooks never crash the consumer
		_ = recover()
	}()
	h.AfterHandle(ctx, msg, err)
}
