package prompt

import (
	"context"
	"errors"
	"testing"
	"time"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestIdentity(t *testing.T) {
	got, err := Identity{}.ConfirmScale(context.Background(), Request{Name: "x"})
	if err != nil || got != Unit {
		t.Errorf("ConfirmScale() = %v, %v, want %v, nil", got, err, Unit)
	}
}

func TestResolve(t *testing.T) {
	published := make(chan Request, 1)
	c := NewChannel(func(r Request) { published <- r })

	done := make(chan v3.Vec, 1)
	go func() {
		s, err := c.ConfirmScale(context.Background(), Request{Name: "part"})
		if err != nil {
			t.Errorf("ConfirmScale() error = %v", err)
		}
		done <- s
	}()

	req := <-published
	if req.ID == 0 || req.Name != "part" {
		t.Fatalf("published request = %+v", req)
	}
	if p := c.Pending(); len(p) != 1 || p[0].ID != req.ID {
		t.Fatalf("Pending() = %+v, want the published request", p)
	}
	if err := c.Resolve(req.ID, v3.Vec{X: 25.4, Y: 25.4, Z: -1}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	select {
	case s := <-done:
		if s != (v3.Vec{X: 25.4, Y: 25.4, Z: 1}) {
			t.Errorf("scale = %v, want [25.4 25.4 1]", s)
		}
	case <-time.After(time.Second):
		t.Fatal("ConfirmScale() did not return after Resolve")
	}
	if len(c.Pending()) != 0 {
		t.Error("request still pending after Resolve")
	}
	if err := c.Resolve(req.ID, Unit); err == nil {
		t.Error("second Resolve() error = nil, want error")
	}
}

func TestDismiss(t *testing.T) {
	published := make(chan Request, 1)
	c := NewChannel(func(r Request) { published <- r })

	done := make(chan v3.Vec, 1)
	go func() {
		s, _ := c.ConfirmScale(context.Background(), Request{Name: "part"})
		done <- s
	}()
	req := <-published
	if err := c.Dismiss(req.ID); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	if s := <-done; s != Unit {
		t.Errorf("scale = %v, want unit", s)
	}
}

func TestCancel(t *testing.T) {
	c := NewChannel(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.ConfirmScale(ctx, Request{Name: "part"})
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("ConfirmScale() error = %v, want ErrCancelled", err)
	}
	if len(c.Pending()) != 0 {
		t.Error("cancelled request left pending")
	}
}

func TestUnattended(t *testing.T) {
	c := NewChannel(func(Request) { t.Error("unattended request was published") })
	got, err := c.ConfirmScale(Unattended(context.Background()), Request{Name: "part"})
	if err != nil || got != Unit {
		t.Errorf("ConfirmScale() = %v, %v, want %v, nil", got, err, Unit)
	}
	if len(c.Pending()) != 0 {
		t.Error("unattended request left pending")
	}
}
