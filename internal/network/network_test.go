package network

import (
	"encoding/json"
	"testing"
	"time"
)

func TestClientMessageEnvelope(t *testing.T) {
	msg, err := NewClientMessage(MsgTypePlaceOffer, PlaceOfferCommand{Slot: 2, Cell: 15})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	data, err := EncodeJSON(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got ClientMessage
	if err := DecodeJSON(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != MsgTypePlaceOffer {
		t.Fatalf("expected %s, got %s", MsgTypePlaceOffer, got.Type)
	}
	var cmd PlaceOfferCommand
	if err := got.DecodePayload(&cmd); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if cmd.Slot != 2 || cmd.Cell != 15 {
		t.Fatalf("expected slot 2 cell 15, got %+v", cmd)
	}
}

func TestClientMessageWithoutPayload(t *testing.T) {
	msg, err := NewClientMessage(MsgTypeStart, nil)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	data, _ := EncodeJSON(msg)
	if string(data) != `{"type":"start"}` {
		t.Fatalf("expected a bare envelope, got %s", data)
	}
	var cmd RemovePieceCommand
	if err := msg.DecodePayload(&cmd); err == nil {
		t.Fatalf("expected an error for a missing payload")
	}
}

func TestServerMessagePayloadRoundTrip(t *testing.T) {
	sent := ServerMessage{
		Seq:       7,
		Timestamp: time.Unix(100, 0).UTC(),
		SessionID: "abc",
		Type:      MsgTypeCommandRejected,
		Payload:   CommandRejected{Command: MsgTypeStart, Reason: "simulation is running"},
	}
	data, err := json.Marshal(sent)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got ServerMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var rejected CommandRejected
	if err := got.DecodePayload(&rejected); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Seq != 7 || rejected.Reason != "simulation is running" {
		t.Fatalf("unexpected message %+v / %+v", got, rejected)
	}
}
