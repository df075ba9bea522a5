package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
	"github.com/elektrokombinacija/warehouse-planner/internal/events"
)

func newTestPublisher(maxLen int64) *StreamPublisher {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	return NewStreamPublisher(client, "", maxLen, nil)
}

func TestStreamKey(t *testing.T) {
	p := newTestPublisher(0)
	if got := p.StreamKey(events.TopicDecisions); got != "warehouse:events:decisions" {
		t.Errorf("StreamKey = %q", got)
	}

	custom := NewStreamPublisher(redis.NewClient(&redis.Options{}), "floor7", 0, nil)
	if got := custom.StreamKey("decisions"); got != "floor7:decisions" {
		t.Errorf("StreamKey with prefix = %q", got)
	}
}

func TestAddArgs(t *testing.T) {
	e := events.Event{ID: "e1", Type: events.TypeStep, Robot: "a", Direction: "NORTH"}

	args := newTestPublisher(0).addArgs("s", e, []byte("{}"))
	if args.Stream != "s" || args.MaxLen != 0 || args.Approx {
		t.Errorf("unbounded args = %+v", args)
	}
	values, ok := args.Values.(map[string]interface{})
	if !ok {
		t.Fatalf("Values type = %T", args.Values)
	}
	if values["type"] != "step" || values["robot"] != "a" {
		t.Errorf("values = %v", values)
	}

	bounded := newTestPublisher(1000).addArgs("s", e, []byte("{}"))
	if bounded.MaxLen != 1000 || !bounded.Approx {
		t.Errorf("bounded args = %+v", bounded)
	}
}

func TestDecode(t *testing.T) {
	cell := core.At(2, 3)
	want := events.Event{
		ID:    "e1",
		Type:  events.TypeLock,
		Robot: "a",
		Cell:  &cell,
		Time:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decode(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": string(data)}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != want.ID || got.Type != want.Type || got.Cell == nil || *got.Cell != cell || !got.Time.Equal(want.Time) {
		t.Errorf("Decode = %+v, want %+v", got, want)
	}

	if _, err := Decode(redis.XMessage{ID: "2-0", Values: map[string]interface{}{}}); err == nil {
		t.Error("Decode without data should fail")
	}
}
