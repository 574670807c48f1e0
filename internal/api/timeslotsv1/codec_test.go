package timeslotsv1

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatalf("codec %q not registered", CodecName)
	}
	if c.Name() != CodecName {
		t.Fatalf("Name = %q", c.Name())
	}
}

func TestCodec_PlainMessagesUseSnakeCaseJSON(t *testing.T) {
	price := int64(100)
	data, err := Codec{}.Marshal(&UpdateSlotRequest{Id: "x", Price: &price})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if got := string(data); got != `{"id":"x","price":100}` {
		t.Fatalf("json = %s", got)
	}

	var out UpdateSlotRequest
	if err := (Codec{}).Unmarshal([]byte(`{"id":"y","max_slots":3,"unknown":true}`), &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if out.Id != "y" || out.MaxSlots == nil || *out.MaxSlots != 3 || out.Price != nil {
		t.Fatalf("decoded = %+v", out)
	}

	var empty DeleteSlotResponse
	if err := (Codec{}).Unmarshal(nil, &empty); err != nil {
		t.Fatalf("Unmarshal(empty) error: %v", err)
	}
}

func TestCodec_ProtoMessagesUseProtoJSON(t *testing.T) {
	ts := timestamppb.New(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	data, err := Codec{}.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), "2026-03-02T09:00:00Z") {
		t.Fatalf("json = %s", data)
	}

	var out timestamppb.Timestamp
	if err := (Codec{}).Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !out.AsTime().Equal(ts.AsTime()) {
		t.Fatalf("decoded = %v", out.AsTime())
	}
}

func TestServiceDescCoversEveryMethod(t *testing.T) {
	if len(ServiceDesc.Methods) != 10 {
		t.Fatalf("methods = %d, want 10", len(ServiceDesc.Methods))
	}
	seen := map[string]bool{}
	for _, m := range ServiceDesc.Methods {
		if seen[m.MethodName] {
			t.Fatalf("duplicate method %s", m.MethodName)
		}
		seen[m.MethodName] = true
	}
	if got := FullMethod(MethodReserve); got != "/fairway.timeslots.v1.TimeSlotsService/Reserve" {
		t.Fatalf("FullMethod = %q", got)
	}
}
