package redis

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeChangeEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantOK  bool
		want    ChangeEvent
	}{
		{
			name:    "valid payment event",
			payload: `{"id":"evt-1","trip_id":"trip-1","kind":"PAYMENT"}`,
			wantOK:  true,
			want:    ChangeEvent{ID: "evt-1", TripID: "trip-1", Kind: ChangeKindPayment},
		},
		{
			name:    "valid split event",
			payload: `{"id":"evt-2","trip_id":"trip-1","kind":"SPLIT"}`,
			wantOK:  true,
			want:    ChangeEvent{ID: "evt-2", TripID: "trip-1", Kind: ChangeKindSplit},
		},
		{
			name:    "malformed json is skipped",
			payload: `{"trip_id":`,
			wantOK:  false,
		},
		{
			name:    "non-json payload is skipped",
			payload: "not an event",
			wantOK:  false,
		},
		{
			name:    "missing trip id is skipped",
			payload: `{"id":"evt-3","kind":"PAYMENT"}`,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event, ok := decodeChangeEvent(DefaultChangeChannel, tt.payload)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if event.ID != tt.want.ID || event.TripID != tt.want.TripID || event.Kind != tt.want.Kind {
				t.Errorf("expected %+v, got %+v", tt.want, event)
			}
		})
	}
}

func TestMarshalChangeEvent_FillsEnvelope(t *testing.T) {
	t.Parallel()

	data, err := marshalChangeEvent(ChangeEvent{TripID: "trip-1", Kind: ChangeKindPayment})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var event ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.ID == "" {
		t.Error("expected a generated event id")
	}
	if event.OccurredAt.IsZero() {
		t.Error("expected OccurredAt to be filled in")
	}
}

func TestMarshalChangeEvent_KeepsProvidedEnvelope(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	data, err := marshalChangeEvent(ChangeEvent{
		ID:         "evt-1",
		TripID:     "trip-1",
		Kind:       ChangeKindSplit,
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event, ok := decodeChangeEvent(DefaultChangeChannel, string(data))
	if !ok {
		t.Fatal("expected the published payload to decode")
	}
	if event.ID != "evt-1" || event.Kind != ChangeKindSplit || !event.OccurredAt.Equal(at) {
		t.Errorf("envelope was rewritten: %+v", event)
	}
}
