package client

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	amqp2 "github.com/maxladabaum/experiment-automation/amqp"
	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeChannel records the publishing and immediately delivers the canned
// replies, stamping the published command id onto any reply marked
// "match" so correlation can be exercised.
type fakeChannel struct {
	events    chan amqp.Delivery
	replies   []amqp2.Event
	published []amqp.Publishing
	keys      []string
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	id, _ := msg.Headers["x-command-id"].(string)
	for _, ev := range f.replies {
		if ev.ID == "match" {
			ev.ID = id
		}
		body, err := json.Marshal(&ev)
		if err != nil {
			return err
		}
		f.events <- amqp.Delivery{Body: body}
	}
	return nil
}

func testController(replies []amqp2.Event) (*Controller, *fakeChannel) {
	f := &fakeChannel{
		events:  make(chan amqp.Delivery, len(replies)),
		replies: replies,
	}
	c := &Controller{
		ch:       f,
		exchange: "topic_devices",
		deviceID: "centris",
		events:   f.events,
	}
	return c, f
}

func TestDo_CorrelatesOnCommandID(t *testing.T) {
	c, f := testController([]amqp2.Event{
		{ID: "someone-else", Reply: "stale"},
		{ID: "match", Reply: "/0OK", State: "Referenced"},
	})
	ev, err := c.Do(context.Background(), "valve", amqp2.CommandBody{Port: 3})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Reply != "/0OK" {
		t.Errorf("reply = %q, want /0OK", ev.Reply)
	}
	if ev.State != "Referenced" {
		t.Errorf("state = %q, want Referenced", ev.State)
	}
	if len(f.keys) != 1 || f.keys[0] != "centris.commands.valve" {
		t.Errorf("routing keys = %q, want [centris.commands.valve]", f.keys)
	}
	var body amqp2.CommandBody
	if err := json.Unmarshal(f.published[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	if body.Port != 3 {
		t.Errorf("published port = %d, want 3", body.Port)
	}
}

func TestDo_DeviceError(t *testing.T) {
	c, _ := testController([]amqp2.Event{
		{ID: "match", Error: "pump: session is faulted", State: "Faulted"},
	})
	ev, err := c.Do(context.Background(), "aspirate", amqp2.CommandBody{VolumeUL: 50})
	if err == nil {
		t.Fatal("expected the device error to surface")
	}
	if !strings.Contains(err.Error(), "faulted") {
		t.Errorf("err = %v, want the device message", err)
	}
	if ev == nil || ev.State != "Faulted" {
		t.Errorf("event = %+v, want the faulted state carried through", ev)
	}
}

func TestDo_Timeout(t *testing.T) {
	c, _ := testController(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Do(ctx, "initialize", amqp2.CommandBody{}); err == nil {
		t.Fatal("expected a deadline error with no reply")
	}
}
