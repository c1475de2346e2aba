package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/relaywf/relay-go/session"
	"github.com/relaywf/relay-go/wire"
)

// lastLabel is set by the most recently invoked test handler; handlers here
// run synchronously so no synchronisation is needed.
var lastLabel string

func record(l string) session.Handler {
	return func(context.Context, *session.Session, wire.Event) {
		lastLabel = l
	}
}

func buttonEvent(button, taps string) wire.Event {
	return wire.Event{
		wire.FieldType: wire.TypeButtonEvent,
		"button":       button,
		"taps":         taps,
	}
}

func TestResolveBareDiscriminator(t *testing.T) {
	w := New("testwf")
	if err := w.OnStart(record("start")); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}

	h := w.Resolve(wire.Event{wire.FieldType: wire.TypeStartEvent})
	if h == nil {
		t.Fatal("Resolve() = nil for registered discriminator")
	}
	if w.Resolve(wire.Event{wire.FieldType: wire.TypeStopEvent}) != nil {
		t.Error("Resolve() != nil for unregistered discriminator")
	}
}

func TestResolveWildcardPriority(t *testing.T) {
	// Probe order: exact, (d1,*), (*,d2), (*,*)
	tests := []struct {
		name      string
		keys      []Key
		event     wire.Event
		wantLabel string
	}{
		{
			name: "exact beats everything",
			keys: []Key{
				{wire.TypeButtonEvent, "action", "single"},
				{wire.TypeButtonEvent, "action", Wildcard},
				{wire.TypeButtonEvent, Wildcard, "single"},
				{wire.TypeButtonEvent, Wildcard, Wildcard},
			},
			event:     buttonEvent("action", "single"),
			wantLabel: "action/single",
		},
		{
			name: "first dimension outranks second",
			keys: []Key{
				{wire.TypeButtonEvent, "action", Wildcard},
				{wire.TypeButtonEvent, Wildcard, "single"},
			},
			event:     buttonEvent("action", "single"),
			wantLabel: "action/*",
		},
		{
			name: "full wildcard as fallback",
			keys: []Key{
				{wire.TypeButtonEvent, Wildcard, Wildcard},
			},
			event:     buttonEvent("channel", "double"),
			wantLabel: "*/*",
		},
		{
			name: "no registration matches other taps",
			keys: []Key{
				{wire.TypeButtonEvent, "action", "double"},
			},
			event:     buttonEvent("action", "single"),
			wantLabel: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New("testwf")
			for _, k := range tt.keys {
				if err := w.Register(k, record(k.Dim1+"/"+k.Dim2)); err != nil {
					t.Fatalf("Register(%s) error = %v", k, err)
				}
			}

			h := w.Resolve(tt.event)
			if tt.wantLabel == "" {
				if h != nil {
					t.Error("Resolve() != nil, want no match")
				}
				return
			}
			if h == nil {
				t.Fatal("Resolve() = nil")
			}
			lastLabel = ""
			h(context.Background(), nil, tt.event)
			if lastLabel != tt.wantLabel {
				t.Errorf("resolved handler = %q, want %q", lastLabel, tt.wantLabel)
			}
		})
	}
}

func TestResolveNotificationDimensions(t *testing.T) {
	w := New("testwf")
	if err := w.OnNotification("shift-alert", "ack_event", record("ack")); err != nil {
		t.Fatalf("OnNotification() error = %v", err)
	}
	if err := w.OnNotification(Wildcard, Wildcard, record("any")); err != nil {
		t.Fatalf("OnNotification() error = %v", err)
	}

	e := wire.Event{
		wire.FieldType: wire.TypeNotificationEvent,
		"name":         "shift-alert",
		"event":        "ack_event",
	}
	h := w.Resolve(e)
	if h == nil {
		t.Fatal("Resolve() = nil")
	}
	lastLabel = ""
	h(context.Background(), nil, e)
	if lastLabel != "ack" {
		t.Errorf("resolved handler = %q, want ack", lastLabel)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	w := New("testwf")
	if err := w.OnButton("action", "single", record("a")); err != nil {
		t.Fatalf("first OnButton() error = %v", err)
	}
	err := w.OnButton("action", "single", record("b"))
	if !errors.Is(err, ErrDuplicateHandler) {
		t.Errorf("second OnButton() error = %v, want ErrDuplicateHandler", err)
	}
}

func TestRegisterNilHandler(t *testing.T) {
	w := New("testwf")
	if err := w.OnStart(nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("OnStart(nil) error = %v, want ErrNilHandler", err)
	}
}

func TestBareRegistrationWinsOverDimensional(t *testing.T) {
	w := New("testwf")
	if err := w.On(wire.TypeButtonEvent, record("bare")); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	if err := w.OnButton("action", "single", record("dimensional")); err != nil {
		t.Fatalf("OnButton() error = %v", err)
	}

	h := w.Resolve(buttonEvent("action", "single"))
	if h == nil {
		t.Fatal("Resolve() = nil")
	}
	lastLabel = ""
	h(context.Background(), nil, nil)
	if lastLabel != "bare" {
		t.Errorf("resolved handler = %q, want bare", lastLabel)
	}
}
