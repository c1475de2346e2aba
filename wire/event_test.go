package wire

import (
	"encoding/json"
	"testing"
)

func TestDecodeBasicEvent(t *testing.T) {
	e, err := Decode([]byte(`{"_type":"wf_api_button_event","button":"action","taps":"single"}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if e.Type() != TypeButtonEvent {
		t.Errorf("Type() = %q, want %q", e.Type(), TypeButtonEvent)
	}
	if e.String("button") != "action" {
		t.Errorf("button = %q, want %q", e.String("button"), "action")
	}
	if e.ID() != "" {
		t.Errorf("ID() = %q, want empty", e.ID())
	}
}

func TestDecodeMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"button":"action"}`)); err != ErrMissingType {
		t.Errorf("Decode() error = %v, want ErrMissingType", err)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Error("Decode() expected error for invalid JSON")
	}
}

func TestDecodeRepairsIntArrays(t *testing.T) {
	// "hi" delivered as character codes, including one nested in a map.
	raw := `{"_type":"wf_api_speech_event","text":[104,105],"extra":{"audio":[104,105]},"counts":[1,2,3.5]}`
	e, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if e.String("text") != "hi" {
		t.Errorf("text = %v, want %q", e["text"], "hi")
	}
	extra, ok := e["extra"].(map[string]any)
	if !ok {
		t.Fatalf("extra is %T, want map", e["extra"])
	}
	if extra["audio"] != "hi" {
		t.Errorf("extra.audio = %v, want %q", extra["audio"], "hi")
	}
	// Fractional values mean the array was real data.
	if _, ok := e["counts"].([]any); !ok {
		t.Errorf("counts = %v, want untouched array", e["counts"])
	}
}

func TestEncodeStripsNulls(t *testing.T) {
	e := Event{
		FieldType: TypeListenRequest,
		"phrases":  []any{"yes", nil, "no"},
		"alt_lang": nil,
		"options":  map[string]any{"title": nil, "sound": "default"},
	}
	data, err := e.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("round-trip unmarshal: %v", err)
	}
	if _, present := out["alt_lang"]; present {
		t.Error("alt_lang should be stripped")
	}
	phrases, _ := out["phrases"].([]any)
	if len(phrases) != 2 {
		t.Errorf("phrases = %v, want 2 entries", out["phrases"])
	}
	options, _ := out["options"].(map[string]any)
	if _, present := options["title"]; present {
		t.Error("options.title should be stripped")
	}
	if options["sound"] != "default" {
		t.Errorf("options.sound = %v, want default", options["sound"])
	}
}

func TestErrorResponseDetection(t *testing.T) {
	e := Event{FieldType: TypeErrorResponse, "error": "no such device"}
	if !e.IsError() {
		t.Error("IsError() = false, want true")
	}
	if e.ErrorMessage() != "no such device" {
		t.Errorf("ErrorMessage() = %q", e.ErrorMessage())
	}
	if (Event{FieldType: TypeStartEvent}).IsError() {
		t.Error("IsError() = true for start event")
	}
}
