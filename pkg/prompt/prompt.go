// Package prompt models the user-confirmed import scale as a cancellable
// request/response exchange. A flow that creates a model suspends in
// ConfirmScale until the user answers, dismisses the prompt, or the
// context is cancelled.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrCancelled is returned when the waiting context ends before an answer.
var ErrCancelled = errors.New("prompt: cancelled")

// Unit is the identity scale used when a prompt is dismissed.
var Unit = v3.Vec{X: 1, Y: 1, Z: 1}

// Request asks the user to confirm the scale of a new model.
type Request struct {
	ID   uint64     `json:"id"`
	Name string     `json:"name"`
	Size [3]float64 `json:"size"` // un-scaled dimensions
}

// ScalePrompt obtains the initial scale of a new model.
type ScalePrompt interface {
	ConfirmScale(ctx context.Context, req Request) (v3.Vec, error)
}

// Identity answers every request with the unit scale immediately.
type Identity struct{}

func (Identity) ConfirmScale(context.Context, Request) (v3.Vec, error) {
	return Unit, nil
}

type unattendedKey struct{}

// Unattended returns a context under which Channel answers every request
// with the unit scale without publishing it. Scripted flows use it since
// they state sizes explicitly.
func Unattended(ctx context.Context) context.Context {
	return context.WithValue(ctx, unattendedKey{}, true)
}

func unattended(ctx context.Context) bool {
	v, _ := ctx.Value(unattendedKey{}).(bool)
	return v
}

type response struct {
	scale v3.Vec
}

// Channel forwards requests to a publisher (the frontend) and waits for
// Resolve or Dismiss to be called with the request id.
type Channel struct {
	mu       sync.Mutex
	next     uint64
	pending  map[uint64]chan response
	requests map[uint64]Request
	publish  func(Request)
}

// NewChannel returns a Channel that announces requests through publish.
func NewChannel(publish func(Request)) *Channel {
	return &Channel{
		pending:  make(map[uint64]chan response),
		requests: make(map[uint64]Request),
		publish:  publish,
	}
}

// ConfirmScale publishes req under a fresh id and blocks until it is
// answered. A dismissed prompt yields the unit scale.
func (c *Channel) ConfirmScale(ctx context.Context, req Request) (v3.Vec, error) {
	if unattended(ctx) {
		return Unit, nil
	}
	ch := make(chan response, 1)

	c.mu.Lock()
	c.next++
	req.ID = c.next
	c.pending[req.ID] = ch
	c.requests[req.ID] = req
	c.mu.Unlock()

	if c.publish != nil {
		c.publish(req)
	}

	select {
	case r := <-ch:
		return r.scale, nil
	case <-ctx.Done():
		c.forget(req.ID)
		return Unit, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

func (c *Channel) take(id uint64) (chan response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	delete(c.requests, id)
	return ch, ok
}

func (c *Channel) forget(id uint64) {
	c.take(id)
}

// Resolve answers request id with scale. Non-positive components fall
// back to 1.
func (c *Channel) Resolve(id uint64, scale v3.Vec) error {
	ch, ok := c.take(id)
	if !ok {
		return fmt.Errorf("prompt: no pending request %d", id)
	}
	fix := func(v float64) float64 {
		if v <= 0 {
			return 1
		}
		return v
	}
	ch <- response{scale: v3.Vec{X: fix(scale.X), Y: fix(scale.Y), Z: fix(scale.Z)}}
	return nil
}

// Dismiss answers request id with the unit scale.
func (c *Channel) Dismiss(id uint64) error {
	return c.Resolve(id, Unit)
}

// Pending lists unanswered requests, oldest first.
func (c *Channel) Pending() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, 0, len(c.requests))
	for _, r := range c.requests {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
