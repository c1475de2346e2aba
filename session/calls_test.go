package session

import (
	"testing"

	"github.com/relaywf/relay-go/wire"
)

func TestCallTableResolvesOutOfOrder(t *testing.T) {
	tbl := newCallTable()

	id1, sl1 := tbl.issue()
	id2, sl2 := tbl.issue()
	if id1 == id2 {
		t.Fatal("issue() returned duplicate ids")
	}

	// Second request's response arrives first
	rsp2 := wire.Event{wire.FieldType: "wf_api_say_response", wire.FieldID: id2}
	if !tbl.resolveEvent(id2, rsp2) {
		t.Fatal("resolveEvent(id2) = false, want true")
	}
	rsp1 := wire.Event{wire.FieldType: "wf_api_listen_response", wire.FieldID: id1}
	if !tbl.resolveEvent(id1, rsp1) {
		t.Fatal("resolveEvent(id1) = false, want true")
	}

	if got := <-sl1.ch; got.Type() != "wf_api_listen_response" {
		t.Errorf("slot1 resolved with %s", got.Type())
	}
	if got := <-sl2.ch; got.Type() != "wf_api_say_response" {
		t.Errorf("slot2 resolved with %s", got.Type())
	}
	if tbl.size() != 0 {
		t.Errorf("size() = %d after both resolutions, want 0", tbl.size())
	}
}

func TestCallTableUnknownID(t *testing.T) {
	tbl := newCallTable()
	if tbl.resolveEvent("nope", wire.Event{}) {
		t.Error("resolveEvent() = true for unknown id")
	}
}

func TestCallTableResolveIsSingleShot(t *testing.T) {
	tbl := newCallTable()
	id, sl := tbl.issue()

	first := wire.Event{wire.FieldType: "first"}
	if !tbl.resolveEvent(id, first) {
		t.Fatal("first resolveEvent() = false")
	}
	// Entry is gone; a duplicate response for the same id is discarded
	if tbl.resolveEvent(id, wire.Event{wire.FieldType: "second"}) {
		t.Error("second resolveEvent() = true, want false")
	}
	if got := <-sl.ch; got.Type() != "first" {
		t.Errorf("slot resolved with %s, want first", got.Type())
	}
}

func TestCallTableRemoveAfterTimeout(t *testing.T) {
	tbl := newCallTable()
	id, sl := tbl.issue()

	// The sender timed out and withdrew its entry
	tbl.remove(id)

	if tbl.resolveEvent(id, wire.Event{wire.FieldType: "late"}) {
		t.Error("resolveEvent() = true after remove, want false")
	}
	select {
	case e := <-sl.ch:
		t.Errorf("slot unexpectedly resolved with %s", e.Type())
	default:
	}
}
