package pump

import (
	"errors"
	"runtime"
	"strconv"
	"sync"

	"github.com/maxladabaum/experiment-automation/comm/serial"
)

// Transport relays one rendered command string to the addressed unit and
// returns the raw reply. Replies are vendor-defined text and are passed
// through unparsed. Send blocks for the full device round trip; there is
// no cancelling an in-flight motion command.
type Transport interface {
	Send(command string, addr int) (string, error)
	Close() error
}

var errTransportClosed = errors.New("transport closed")

type request struct {
	frame []byte
	reply chan result
}

type result struct {
	text string
	err  error
}

// wire is the slice of the serial port the transport needs.
type wire interface {
	Write(data []byte) (int, error)
	ReadLine() (string, error)
	ResetInput() error
	Close() error
}

// serialTransport frames commands for the vendor wire protocol and owns a
// single worker goroutine that performs all port I/O. The worker pins
// itself to its OS thread for its lifetime so any native environment the
// platform serial stack needs is set up and torn down on the same thread
// that does every send.
type serialTransport struct {
	port   wire
	reqCh  chan request
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// Open opens the serial channel to the pump controller.
func Open(portName string, baud int) (Transport, error) {
	p, err := serial.OpenPort(portName, baud)
	if err != nil {
		return nil, &ConnectionError{Port: portName, Err: err}
	}
	return newSerialTransport(p), nil
}

func newSerialTransport(w wire) *serialTransport {
	t := &serialTransport{
		port:  w,
		reqCh: make(chan request),
		done:  make(chan struct{}),
	}
	go t.worker()
	return t
}

func (t *serialTransport) worker() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)
	for req := range t.reqCh {
		req.reply <- t.roundTrip(req.frame)
	}
}

func (t *serialTransport) roundTrip(frame []byte) result {
	if err := t.port.ResetInput(); err != nil {
		return result{err: err}
	}
	if _, err := t.port.Write(frame); err != nil {
		return result{err: err}
	}
	text, err := t.port.ReadLine()
	if err != nil {
		return result{err: err}
	}
	return result{text: text}
}

// Send frames command for the unit at addr and returns the reply text.
func (t *serialTransport) Send(command string, addr int) (string, error) {
	req := request{frame: frameCommand(command, addr), reply: make(chan result, 1)}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", &TransportError{Command: command, Err: errTransportClosed}
	}
	t.reqCh <- req
	t.mu.Unlock()
	res := <-req.reply
	if res.err != nil {
		return "", &TransportError{Command: command, Err: res.err}
	}
	return res.text, nil
}

// Close shuts the worker down and releases the port. Safe to call more
// than once; later calls are no-ops. The mutex keeps a racing Send off
// the request channel once it is closed.
func (t *serialTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.reqCh)
	t.mu.Unlock()
	<-t.done
	return t.port.Close()
}

// frameCommand wraps the command in the OEM framing the controller
// expects: start character, ASCII unit address, command body, carriage
// return.
func frameCommand(command string, addr int) []byte {
	frame := make([]byte, 0, len(command)+3)
	frame = append(frame, '/')
	frame = append(frame, strconv.Itoa(addr)...)
	frame = append(frame, command...)
	frame = append(frame, '\r')
	return frame
}
