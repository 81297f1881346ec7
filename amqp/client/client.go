// Package client publishes pump commands to a device daemon and waits
// for its event replies.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	amqp2 "github.com/maxladabaum/experiment-automation/amqp"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the slice of the AMQP channel the controller publishes on.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Controller struct {
	ch       channel
	exchange string
	deviceID string
	events   <-chan amqp.Delivery
}

func NewController(conn *amqp2.Connection, exchange, deviceID string) (*Controller, error) {
	ch := conn.Channel
	q, err := ch.QueueDeclare("", false, false, true, false, nil)
	if err != nil {
		return nil, err
	}
	err = ch.QueueBind(q.Name, deviceID+".events.*", exchange, false, nil)
	if err != nil {
		return nil, err
	}
	events, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Controller{
		ch:       ch,
		exchange: exchange,
		deviceID: deviceID,
		events:   events,
	}, nil
}

// Do publishes one command and blocks until the matching event reply
// arrives or ctx expires.
func (c *Controller) Do(ctx context.Context, name string, body amqp2.CommandBody) (*amqp2.Event, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(&body)
	if err != nil {
		return nil, err
	}
	err = c.ch.PublishWithContext(ctx,
		c.exchange,
		c.deviceID+".commands."+name,
		false,
		false,
		amqp.Publishing{
			Body:         payload,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{"x-command-id": id},
		},
	)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d := <-c.events:
			var ev amqp2.Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				return nil, err
			}
			if ev.ID != id {
				continue
			}
			if ev.Error != "" {
				return &ev, fmt.Errorf("device error: %s", ev.Error)
			}
			return &ev, nil
		}
	}
}
