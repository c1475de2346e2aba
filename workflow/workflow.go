package workflow

import (
	"fmt"

	"github.com/relaywf/relay-go/session"
	"github.com/relaywf/relay-go/wire"
)

// Wildcard leaves a secondary dimension unconstrained in a handler key.
const Wildcard = "*"

// Key identifies a handler registration: a bare event discriminator, or a
// discriminator plus two secondary dimensions that may each be Wildcard.
type Key struct {
	Type string
	Dim1 string
	Dim2 string
}

func (k Key) String() string {
	if k.Dim1 == "" && k.Dim2 == "" {
		return k.Type
	}
	return fmt.Sprintf("%s(%s,%s)", k.Type, k.Dim1, k.Dim2)
}

// dimensionFields names the event payload fields that act as secondary
// dimensions for the two-dimensional discriminators.
var dimensionFields = map[string][2]string{
	wire.TypeButtonEvent:       {"button", "taps"},
	wire.TypeNotificationEvent: {"name", "event"},
}

// Workflow is an immutable registry of event handlers bound to one endpoint
// path. Register all handlers before handing the workflow to a server; the
// registry is then shared read-only across every session it serves.
type Workflow struct {
	name     string
	handlers map[Key]session.Handler
}

// New creates an empty workflow with the given name.
func New(name string) *Workflow {
	return &Workflow{
		name:     name,
		handlers: make(map[Key]session.Handler),
	}
}

// Name returns the workflow's name, used in logs and telemetry.
func (w *Workflow) Name() string {
	return w.name
}

// Register binds a handler to a key. Registering the same key twice is an
// error rather than a silent overwrite.
func (w *Workflow) Register(key Key, h session.Handler) error {
	if h == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, key)
	}
	if _, exists := w.handlers[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, key)
	}
	w.handlers[key] = h
	return nil
}

// On binds a handler to a bare event discriminator.
func (w *Workflow) On(eventType string, h session.Handler) error {
	return w.Register(Key{Type: eventType}, h)
}

// OnStart binds the workflow start handler.
func (w *Workflow) OnStart(h session.Handler) error {
	return w.On(wire.TypeStartEvent, h)
}

// OnStop binds the workflow stop handler.
func (w *Workflow) OnStop(h session.Handler) error {
	return w.On(wire.TypeStopEvent, h)
}

// OnPrompt binds the prompt (playback lifecycle) handler.
func (w *Workflow) OnPrompt(h session.Handler) error {
	return w.On(wire.TypePromptEvent, h)
}

// OnTimer binds the unnamed-timer handler.
func (w *Workflow) OnTimer(h session.Handler) error {
	return w.On(wire.TypeTimerEvent, h)
}

// OnTimerFired binds the named-timer handler.
func (w *Workflow) OnTimerFired(h session.Handler) error {
	return w.On(wire.TypeTimerFiredEvent, h)
}

// OnSpeech binds the speech transcription handler.
func (w *Workflow) OnSpeech(h session.Handler) error {
	return w.On(wire.TypeSpeechEvent, h)
}

// OnResume binds the workflow resume handler.
func (w *Workflow) OnResume(h session.Handler) error {
	return w.On(wire.TypeResumeEvent, h)
}

// OnInteractionLifecycle binds the interaction lifecycle handler.
func (w *Workflow) OnInteractionLifecycle(h session.Handler) error {
	return w.On(wire.TypeInteractionLifecycleEvent, h)
}

// OnIncident binds the incident handler.
func (w *Workflow) OnIncident(h session.Handler) error {
	return w.On(wire.TypeIncidentEvent, h)
}

// OnButton binds a handler for button presses. button names the physical
// button ("action", "channel") and taps the press kind ("single", "double",
// "triple", "long"); either may be Wildcard.
func (w *Workflow) OnButton(button, taps string, h session.Handler) error {
	return w.Register(Key{Type: wire.TypeButtonEvent, Dim1: button, Dim2: taps}, h)
}

// OnNotification binds a handler for notification acknowledgements. name is
// the notification's name and event the acknowledgement kind; either may be
// Wildcard.
func (w *Workflow) OnNotification(name, event string, h session.Handler) error {
	return w.Register(Key{Type: wire.TypeNotificationEvent, Dim1: name, Dim2: event}, h)
}

// Resolve returns the most specific handler for an inbound event, or nil.
//
// A bare-discriminator registration always wins. For two-dimensional events
// the probes run exact (tag,d1,d2), then (tag,d1,*), then (tag,*,d2), then
// (tag,*,*): the first declared dimension outranks the second, not the total
// wildcard count. Resolving to nil is not an error; the session logs and
// drops the event.
func (w *Workflow) Resolve(e wire.Event) session.Handler {
	t := e.Type()
	if h, ok := w.handlers[Key{Type: t}]; ok {
		return h
	}

	dims, ok := dimensionFields[t]
	if !ok {
		return nil
	}
	d1 := e.String(dims[0])
	d2 := e.String(dims[1])

	for _, key := range []Key{
		{Type: t, Dim1: d1, Dim2: d2},
		{Type: t, Dim1: d1, Dim2: Wildcard},
		{Type: t, Dim1: Wildcard, Dim2: d2},
		{Type: t, Dim1: Wildcard, Dim2: Wildcard},
	} {
		if h, ok := w.handlers[key]; ok {
			return h
		}
	}
	return nil
}
