package session

import (
	"context"
	"time"

	"github.com/relaywf/relay-go/resource"
	"github.com/relaywf/relay-go/wire"
)

// Action wrappers: each builds one tagged request and delegates to the
// session's Send/SendAndCorrelate primitives, plus an ad-hoc wait for the
// *AndWait and Listen forms. Payload field names follow the controller
// protocol; the runtime does not validate them.

const (
	// promptWait bounds the wait for a playback-finished prompt event after a
	// say or play request.
	promptWait = 30 * time.Second

	// DefaultListenTimeout bounds Listen when the caller passes zero.
	DefaultListenTimeout = 60 * time.Second
)

// defaultVibratePattern is the controller's standard buzz cadence in ms.
var defaultVibratePattern = []int{100, 500, 500, 500, 500, 500}

// ── Interactions ────────────────────────────────────────────────────────────

// StartInteraction starts a named interaction on the target devices.
func (s *Session) StartInteraction(ctx context.Context, target resource.Target, name string, options map[string]any) error {
	e := wire.New(wire.TypeStartInteractionRequest)
	e[wire.FieldTarget] = target
	e["name"] = name
	e["options"] = options
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// EndInteraction ends a named interaction.
func (s *Session) EndInteraction(ctx context.Context, target resource.Target, name string) error {
	e := wire.New(wire.TypeEndInteractionRequest)
	e[wire.FieldTarget] = target
	e["name"] = name
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// ── Speech and audio ────────────────────────────────────────────────────────

// Say speaks text on the target interaction and returns the playback id
// without waiting for playback to finish.
func (s *Session) Say(ctx context.Context, target resource.Target, text, lang string) (string, error) {
	rsp, err := s.SendAndCorrelate(ctx, sayRequest(target, text, lang), 0)
	if err != nil {
		return "", err
	}
	return rsp.String("id"), nil
}

// SayAndWait speaks text and blocks until the independent playback-finished
// prompt event for this request arrives.
func (s *Session) SayAndWait(ctx context.Context, target resource.Target, text, lang string) (string, error) {
	return s.requestAndAwaitPrompt(ctx, sayRequest(target, text, lang))
}

// Play plays an audio file on the target and returns the playback id.
func (s *Session) Play(ctx context.Context, target resource.Target, filename string) (string, error) {
	rsp, err := s.SendAndCorrelate(ctx, playRequest(target, filename), 0)
	if err != nil {
		return "", err
	}
	return rsp.String("id"), nil
}

// PlayAndWait plays an audio file and blocks until playback finishes.
func (s *Session) PlayAndWait(ctx context.Context, target resource.Target, filename string) (string, error) {
	return s.requestAndAwaitPrompt(ctx, playRequest(target, filename))
}

// StopPlayback stops the given playback ids on the target, or all playback
// when ids is empty.
func (s *Session) StopPlayback(ctx context.Context, target resource.Target, ids ...string) error {
	e := wire.New(wire.TypeStopPlaybackRequest)
	e[wire.FieldTarget] = target
	if len(ids) > 0 {
		e["ids"] = ids
	}
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// Listen prompts the target to capture speech and blocks until the transcribed
// speech event for this request arrives. A zero timeout means
// DefaultListenTimeout. Returns the transcription text.
func (s *Session) Listen(ctx context.Context, target resource.Target, phrases []string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultListenTimeout
	}
	if phrases == nil {
		phrases = []string{}
	}

	id := newID()
	e := wire.New(wire.TypeListenRequest)
	e[wire.FieldTarget] = target
	e["request_id"] = id
	e["phrases"] = phrases
	e["transcribe"] = true
	e["timeout"] = int(timeout / time.Second)

	// The speech event correlates to this request only through its embedded
	// request_id, so the waiter must exist before the request is on the wire.
	w := s.NewWait(map[string]any{
		wire.FieldType: wire.TypeSpeechEvent,
		"request_id":   id,
	})
	if _, err := s.sendCorrelatedWithID(ctx, e, id, 0); err != nil {
		w.Cancel()
		return "", err
	}
	speech, err := w.Await(ctx, timeout)
	if err != nil {
		return "", err
	}
	return speech.String("text"), nil
}

func sayRequest(target resource.Target, text, lang string) wire.Event {
	if lang == "" {
		lang = "en-US"
	}
	e := wire.New(wire.TypeSayRequest)
	e[wire.FieldTarget] = target
	e["text"] = text
	e["lang"] = lang
	return e
}

func playRequest(target resource.Target, filename string) wire.Event {
	e := wire.New(wire.TypePlayRequest)
	e[wire.FieldTarget] = target
	e["filename"] = filename
	return e
}

// requestAndAwaitPrompt issues a playback request and waits for its
// prompt-stopped follow-up, matched by the request id embedded in the event.
func (s *Session) requestAndAwaitPrompt(ctx context.Context, e wire.Event) (string, error) {
	id := newID()
	w := s.NewWait(map[string]any{
		wire.FieldType: wire.TypePromptEvent,
		"type":         "stopped",
		"id":           id,
	})
	rsp, err := s.sendCorrelatedWithID(ctx, e, id, 0)
	if err != nil {
		w.Cancel()
		return "", err
	}
	if _, err := w.Await(ctx, promptWait); err != nil {
		return "", err
	}
	return rsp.String("id"), nil
}

// ── Workflow variables ──────────────────────────────────────────────────────

// GetVar retrieves a workflow variable from the controller, returning def
// when it is unset.
func (s *Session) GetVar(ctx context.Context, name, def string) (string, error) {
	e := wire.New(wire.TypeGetVarRequest)
	e["name"] = name
	rsp, err := s.SendAndCorrelate(ctx, e, 0)
	if err != nil {
		return "", err
	}
	if _, ok := rsp["value"]; !ok {
		return def, nil
	}
	return rsp.String("value"), nil
}

// SetVar stores a workflow variable in the controller.
func (s *Session) SetVar(ctx context.Context, name, value string) error {
	e := wire.New(wire.TypeSetVarRequest)
	e["name"] = name
	e["value"] = value
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// UnsetVar removes a workflow variable.
func (s *Session) UnsetVar(ctx context.Context, name string) error {
	e := wire.New(wire.TypeUnsetVarRequest)
	e["name"] = name
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// ── Notifications ───────────────────────────────────────────────────────────

// Alert sends a repeating-tone alert that persists until acknowledged.
func (s *Session) Alert(ctx context.Context, target resource.Target, originator, name, text string) error {
	return s.sendNotification(ctx, target, originator, "alert", name, text)
}

// Broadcast plays a tone plus spoken text on the target devices.
func (s *Session) Broadcast(ctx context.Context, target resource.Target, originator, name, text string) error {
	return s.sendNotification(ctx, target, originator, "broadcast", name, text)
}

// Notify plays a notification tone on the target devices.
func (s *Session) Notify(ctx context.Context, target resource.Target, originator, name, text string) error {
	return s.sendNotification(ctx, target, originator, "notify", name, text)
}

// CancelNotification cancels a named alert, broadcast, or notification.
func (s *Session) CancelNotification(ctx context.Context, target resource.Target, name string) error {
	return s.sendNotification(ctx, target, "", "cancel", name, "")
}

func (s *Session) sendNotification(ctx context.Context, target resource.Target, originator, ntype, name, text string) error {
	e := wire.New(wire.TypeNotificationRequest)
	e[wire.FieldTarget] = target
	e["type"] = ntype
	e["name"] = name
	e["target"] = target
	if originator != "" {
		e["originator"] = originator
	}
	if text != "" {
		e["text"] = text
	}
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// ── Channels and device info ────────────────────────────────────────────────

// SetChannel moves the target devices to a channel.
func (s *Session) SetChannel(ctx context.Context, target resource.Target, channel string, suppressTTS, disableHomeChannel bool) error {
	e := wire.New(wire.TypeSetChannelRequest)
	e[wire.FieldTarget] = target
	e["channel_name"] = channel
	e["suppress_tts"] = suppressTTS
	e["disable_home_channel"] = disableHomeChannel
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// GetDeviceName returns the target device's name.
func (s *Session) GetDeviceName(ctx context.Context, target resource.Target, refresh bool) (string, error) {
	rsp, err := s.getDeviceInfo(ctx, target, "name", refresh)
	if err != nil {
		return "", err
	}
	return rsp.String("name"), nil
}

// GetDeviceAddress returns the target device's street address.
func (s *Session) GetDeviceAddress(ctx context.Context, target resource.Target, refresh bool) (string, error) {
	rsp, err := s.getDeviceInfo(ctx, target, "address", refresh)
	if err != nil {
		return "", err
	}
	return rsp.String("address"), nil
}

// GetDeviceBattery returns the target device's battery percentage.
func (s *Session) GetDeviceBattery(ctx context.Context, target resource.Target, refresh bool) (float64, error) {
	rsp, err := s.getDeviceInfo(ctx, target, "battery", refresh)
	if err != nil {
		return 0, err
	}
	battery, _ := rsp["battery"].(float64)
	return battery, nil
}

// GetDeviceType returns the target device's hardware type.
func (s *Session) GetDeviceType(ctx context.Context, target resource.Target, refresh bool) (string, error) {
	rsp, err := s.getDeviceInfo(ctx, target, "type", refresh)
	if err != nil {
		return "", err
	}
	return rsp.String("type"), nil
}

// GetDeviceID returns the target device's identifier.
func (s *Session) GetDeviceID(ctx context.Context, target resource.Target, refresh bool) (string, error) {
	rsp, err := s.getDeviceInfo(ctx, target, "id", refresh)
	if err != nil {
		return "", err
	}
	return rsp.String("id"), nil
}

// getDeviceInfo queries one device attribute; the target may address only a
// single device.
func (s *Session) getDeviceInfo(ctx context.Context, target resource.Target, query string, refresh bool) (wire.Event, error) {
	e := wire.New(wire.TypeGetDeviceInfoRequest)
	e[wire.FieldTarget] = target
	e["query"] = query
	e["refresh"] = refresh
	return s.SendAndCorrelate(ctx, e, 0)
}

// SetDeviceName renames the target device.
func (s *Session) SetDeviceName(ctx context.Context, target resource.Target, name string) error {
	return s.setDeviceInfo(ctx, target, "label", name)
}

// SetDeviceChannel moves the target device to a channel by device-info write.
func (s *Session) SetDeviceChannel(ctx context.Context, target resource.Target, channel string) error {
	return s.setDeviceInfo(ctx, target, "channel", channel)
}

// EnableLocation turns on location reporting for the target device.
func (s *Session) EnableLocation(ctx context.Context, target resource.Target) error {
	return s.setDeviceInfo(ctx, target, "location_enabled", "true")
}

// DisableLocation turns off location reporting for the target device.
func (s *Session) DisableLocation(ctx context.Context, target resource.Target) error {
	return s.setDeviceInfo(ctx, target, "location_enabled", "false")
}

func (s *Session) setDeviceInfo(ctx context.Context, target resource.Target, field, value string) error {
	e := wire.New(wire.TypeSetDeviceInfoRequest)
	e[wire.FieldTarget] = target
	e["field"] = field
	e["value"] = value
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// SetDeviceMode puts the target device into "panic", "alarm", or "none" mode.
func (s *Session) SetDeviceMode(ctx context.Context, target resource.Target, mode string) error {
	e := wire.New(wire.TypeSetDeviceModeRequest)
	e["target"] = target
	e["mode"] = mode
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// ── LEDs and vibration ──────────────────────────────────────────────────────

// SetLED applies an LED effect ("rainbow", "rotate", "flash", "breathe",
// "static", "off") with effect-specific args.
func (s *Session) SetLED(ctx context.Context, target resource.Target, effect string, args map[string]any) error {
	e := wire.New(wire.TypeSetLEDRequest)
	e[wire.FieldTarget] = target
	e["effect"] = effect
	e["args"] = args
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// SwitchAllLEDOn lights the full ring in one colour (hex RGB, e.g. "0000ff").
func (s *Session) SwitchAllLEDOn(ctx context.Context, target resource.Target, color string) error {
	return s.SetLED(ctx, target, "static", map[string]any{"colors": map[string]any{"ring": color}})
}

// SwitchAllLEDOff turns the LED ring off.
func (s *Session) SwitchAllLEDOff(ctx context.Context, target resource.Target) error {
	return s.SetLED(ctx, target, "off", map[string]any{})
}

// Rotate spins a single lit LED around the ring in one colour.
func (s *Session) Rotate(ctx context.Context, target resource.Target, color string) error {
	return s.SetLED(ctx, target, "rotate", map[string]any{
		"colors":    map[string]any{"1": color},
		"rotations": -1,
	})
}

// Rainbow plays the rainbow effect; rotations of -1 repeats until changed.
func (s *Session) Rainbow(ctx context.Context, target resource.Target, rotations int) error {
	return s.SetLED(ctx, target, "rainbow", map[string]any{"rotations": rotations})
}

// Flash flashes the ring in one colour; count of -1 repeats until changed.
func (s *Session) Flash(ctx context.Context, target resource.Target, color string, count int) error {
	return s.SetLED(ctx, target, "flash", map[string]any{
		"colors": map[string]any{"ring": color},
		"count":  count,
	})
}

// Breathe pulses the ring in one colour; count of -1 repeats until changed.
func (s *Session) Breathe(ctx context.Context, target resource.Target, color string, count int) error {
	return s.SetLED(ctx, target, "breathe", map[string]any{
		"colors": map[string]any{"ring": color},
		"count":  count,
	})
}

// Vibrate buzzes the target with the given on/off pattern in milliseconds,
// or the standard cadence when pattern is nil.
func (s *Session) Vibrate(ctx context.Context, target resource.Target, pattern []int) error {
	if len(pattern) == 0 {
		pattern = defaultVibratePattern
	}
	e := wire.New(wire.TypeVibrateRequest)
	e[wire.FieldTarget] = target
	e["pattern"] = pattern
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// ── Timers ──────────────────────────────────────────────────────────────────

// StartTimer starts the unnamed workflow timer.
func (s *Session) StartTimer(ctx context.Context, timeout time.Duration) error {
	e := wire.New(wire.TypeStartTimerRequest)
	e["timeout"] = int(timeout / time.Second)
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// StopTimer stops the unnamed workflow timer.
func (s *Session) StopTimer(ctx context.Context) error {
	_, err := s.SendAndCorrelate(ctx, wire.New(wire.TypeStopTimerRequest), 0)
	return err
}

// SetTimer starts a named timer. timerType is "timeout" or "interval";
// timeoutType is "ms", "secs", "mins", or "hrs".
func (s *Session) SetTimer(ctx context.Context, timerType, name string, timeout int, timeoutType string) error {
	e := wire.New(wire.TypeSetTimerRequest)
	e["type"] = timerType
	e["name"] = name
	e["timeout"] = timeout
	e["timeout_type"] = timeoutType
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// ClearTimer cancels a named timer.
func (s *Session) ClearTimer(ctx context.Context, name string) error {
	e := wire.New(wire.TypeClearTimerRequest)
	e["name"] = name
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// ── Incidents and lifecycle ─────────────────────────────────────────────────

// CreateIncident opens an incident of the given type and returns its id.
func (s *Session) CreateIncident(ctx context.Context, originatorURI, incidentType string) (string, error) {
	e := wire.New(wire.TypeCreateIncidentRequest)
	e["type"] = incidentType
	e["originator_uri"] = originatorURI
	rsp, err := s.SendAndCorrelate(ctx, e, 0)
	if err != nil {
		return "", err
	}
	return rsp.String("incident_id"), nil
}

// ResolveIncident closes an incident with a reason.
func (s *Session) ResolveIncident(ctx context.Context, incidentID, reason string) error {
	e := wire.New(wire.TypeResolveIncidentRequest)
	e["incident_id"] = incidentID
	e["reason"] = reason
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// LogMessage records an analytics event with the controller.
func (s *Session) LogMessage(ctx context.Context, content, category string) error {
	e := wire.New(wire.TypeLogAnalyticsRequest)
	e["content"] = content
	e["content_type"] = "text/plain"
	e["category"] = category
	_, err := s.SendAndCorrelate(ctx, e, 0)
	return err
}

// Terminate asks the controller to end the workflow. The controller answers
// by closing the stream, not with a response, so this is fire-and-forget.
func (s *Session) Terminate() error {
	return s.Send(wire.New(wire.TypeTerminateRequest))
}
