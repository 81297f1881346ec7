// Package server exposes one pump session on an AMQP topic exchange.
// Deliveries are handled strictly one at a time; the physical commands
// they produce are sequential by nature.
package server

import (
	"context"

	amqp2 "github.com/maxladabaum/experiment-automation/amqp"
	"github.com/maxladabaum/experiment-automation/pump"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler executes one named pump operation and returns the raw vendor
// reply.
type Handler func(ctx context.Context, body amqp2.CommandBody) (string, error)

type Handlers map[string]Handler

// Session is the slice of the pump session the server drives.
type Session interface {
	Initialize() (string, error)
	Execute(cmd pump.Command) (string, error)
	Calibration() pump.Calibration
	State() pump.State
}

// PumpHandlers binds the standard operation set to a session.
func PumpHandlers(s Session) Handlers {
	plunger := func(cmd func(steps int) pump.Command) Handler {
		return func(_ context.Context, body amqp2.CommandBody) (string, error) {
			if body.Speed > 0 {
				if _, err := s.Execute(pump.SetSpeed{Speed: body.Speed}); err != nil {
					return "", err
				}
			}
			steps, err := s.Calibration().Steps(body.VolumeUL)
			if err != nil {
				return "", err
			}
			return s.Execute(cmd(steps))
		}
	}
	return Handlers{
		"initialize": func(context.Context, amqp2.CommandBody) (string, error) {
			return s.Initialize()
		},
		"set_speed": func(_ context.Context, body amqp2.CommandBody) (string, error) {
			return s.Execute(pump.SetSpeed{Speed: body.Speed})
		},
		"valve": func(_ context.Context, body amqp2.CommandBody) (string, error) {
			return s.Execute(pump.SelectValve{Port: body.Port})
		},
		"aspirate": plunger(func(steps int) pump.Command {
			return pump.Aspirate{Steps: steps}
		}),
		"dispense": plunger(func(steps int) pump.Command {
			return pump.Dispense{Steps: steps}
		}),
	}
}

type Server struct {
	ch       *amqp.Channel
	q        *amqp.Queue
	cmd      *amqp2.CommandService
	session  Session
	handlers Handlers
	exchange string
	deviceID string
	logger   *zap.Logger
}

func (s *Server) AddHandler(route string, h Handler) {
	s.handlers[route] = h
}

func New(conn *amqp2.Connection, session Session, exchange, deviceID string, logger *zap.Logger) (*Server, error) {
	ch := conn.Channel
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		false,    // durable
		false,    // delete when unused
		false,    // exclusive
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	handlers := PumpHandlers(session)
	keys := make([]string, 0, len(handlers)+1)
	for key := range handlers {
		keys = append(keys, deviceID+".commands."+key)
	}
	keys = append(keys, deviceID+".state.get")
	for _, key := range keys {
		err := ch.QueueBind(
			q.Name,   // queue name
			key,      // routing key
			exchange, // exchange
			false,
			nil)
		if err != nil {
			return nil, err
		}
	}
	return &Server{
		ch:       ch,
		q:        &q,
		cmd:      &amqp2.CommandService{},
		session:  session,
		handlers: handlers,
		exchange: exchange,
		deviceID: deviceID,
		logger:   logger,
	}, nil
}

func (s *Server) Listen(ctx context.Context) error {
	msgs, err := s.ch.Consume(
		s.q.Name, // queue
		"",       // consumer
		true,     // auto-ack
		false,    // exclusive
		false,    // no-local
		false,    // no-wait
		nil,      // args
	)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("closing command listener")
			return nil
		case d := <-msgs:
			s.handleDelivery(ctx, d)
		}
	}
}

func (s *Server) handleDelivery(ctx context.Context, d amqp.Delivery) {
	if d.RoutingKey == s.deviceID+".state.get" {
		s.publish(ctx, &amqp2.Event{
			From:  s.deviceID,
			Name:  "state",
			State: s.session.State().String(),
		})
		return
	}
	data, err := s.cmd.Load(ctx, d)
	if err != nil {
		s.logger.Error("bad delivery", zap.String("key", d.RoutingKey), zap.Error(err))
		return
	}
	s.logger.Info("command received", zap.String("name", data.Name))
	ev := &amqp2.Event{
		From: s.deviceID,
		Name: data.Name,
		ID:   data.ID,
	}
	h, found := s.handlers[data.Name]
	if !found {
		ev.Error = "unknown command " + data.Name
	} else if reply, err := h(ctx, data.Body); err != nil {
		ev.Error = err.Error()
	} else {
		ev.Reply = reply
	}
	ev.State = s.session.State().String()
	s.publish(ctx, ev)
}

func (s *Server) publish(ctx context.Context, ev *amqp2.Event) {
	resp, err := s.cmd.Flush(ctx, ev)
	if err != nil {
		s.logger.Error("failed to flush event", zap.Error(err))
		return
	}
	err = s.ch.PublishWithContext(ctx, s.exchange, ev.RoutingKey(), false, false, resp)
	if err != nil {
		s.logger.Error("failed to publish event", zap.String("key", ev.RoutingKey()), zap.Error(err))
	}
}
