// Package amqp carries the remote command plane: pump operations arrive
// as JSON messages routed `<device>.commands.<op>` on a topic exchange,
// and the raw vendor replies go back out as `<device>.events.<op>`.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/maxladabaum/experiment-automation/env"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Command is one decoded pump request from the wire.
type Command struct {
	To   string
	Name string
	ID   string
	Body CommandBody
}

// CommandBody is the JSON payload of a pump command. Unused fields stay
// zero; each handler reads the ones its operation needs.
type CommandBody struct {
	VolumeUL float64 `json:"volume_ul,omitempty"`
	Speed    int     `json:"speed,omitempty"`
	Port     int     `json:"port,omitempty"`
}

// Event is the reply published after a command is handled.
type Event struct {
	From  string `json:"-"`
	Name  string `json:"-"`
	ID    string `json:"id,omitempty"`
	Reply string `json:"reply,omitempty"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func (e *Event) RoutingKey() string {
	return e.From + ".events." + e.Name
}

// CommandService translates deliveries to Commands and Events to
// publishings.
type CommandService struct{}

func (a *CommandService) Load(_ context.Context, data amqp.Delivery) (*Command, error) {
	sk := strings.Split(data.RoutingKey, ".")
	if len(sk) != 3 || sk[1] != "commands" {
		return nil, errors.New("invalid routing key")
	}
	id := ""
	if data.Headers != nil {
		if v, ok := data.Headers["x-command-id"].(string); ok {
			id = v
		}
	}
	res := &Command{
		To:   sk[0],
		Name: sk[2],
		ID:   id,
	}
	if len(data.Body) == 0 {
		return res, nil
	}
	return res, json.Unmarshal(data.Body, &res.Body)
}

func (a *CommandService) Flush(_ context.Context, event *Event) (amqp.Publishing, error) {
	bytes, err := json.Marshal(event)
	if err != nil {
		var zero amqp.Publishing
		return zero, err
	}
	return amqp.Publishing{
		Body:         bytes,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers: amqp.Table{
			"x-event-name": event.Name,
			"x-command-id": event.ID,
		},
	}, nil
}

type Connection struct {
	*amqp.Connection
	*amqp.Channel
}

func (c *Connection) Close() error {
	if c.Channel != nil {
		err := c.Channel.Close()
		if err != nil {
			return err
		}
	}
	return c.Connection.Close()
}

func Dial(environ *env.Environment) (*Connection, error) {
	conn, err := amqp.Dial(environ.URI)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return &Connection{conn, ch}, nil
}
