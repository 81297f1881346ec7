package serial

import (
	"bytes"
	"context"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"sync"
	"time"
)

type Port struct {
	port serial.Port
	mu   sync.Mutex
}

// PortDetails describes a discovered serial port. Product and the USB IDs
// are empty for non-USB ports.
type PortDetails struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Product string
}

func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}

func DetailedPorts() ([]*PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ret := make([]*PortDetails, len(ports))
	for i, p := range ports {
		ret[i] = &PortDetails{
			Name:    p.Name,
			IsUSB:   p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Product: p.Product,
		}
	}
	return ret, nil
}

func OpenPort(port string, baud int) (*Port, error) {
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	err = p.SetReadTimeout(time.Duration(500) * time.Millisecond)
	if err != nil {
		return nil, err
	}
	return &Port{port: p}, nil
}

func (p *Port) Close() error {
	return p.port.Close()
}

func (p *Port) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port.Write(data)
}

// WriteLine writes data followed by the given terminator in one call.
func (p *Port) WriteLine(data []byte, term byte) error {
	_, err := p.Write(append(data, term))
	return err
}

// ReadLine reads until a '\r' or '\n' terminator or the port read timeout
// elapses, and returns the line with terminators stripped.
func (p *Port) ReadLine() (string, error) {
	var buf bytes.Buffer
	b := make([]byte, 1)
	for {
		n, err := p.port.Read(b)
		if err != nil {
			return "", err
		}
		if n == 0 {
			// read timeout; whatever arrived is the reply
			return buf.String(), nil
		}
		if b[0] == '\r' || b[0] == '\n' {
			if buf.Len() == 0 {
				continue
			}
			return buf.String(), nil
		}
		buf.WriteByte(b[0])
	}
}

// ResetInput drains any bytes pending on the receive side.
func (p *Port) ResetInput() error {
	return p.port.ResetInputBuffer()
}

// Lines streams received lines on a background goroutine until ctx is
// cancelled or a read fails, after which the channel closes. Read
// timeouts with nothing buffered produce no line.
func (p *Port) Lines(ctx context.Context) <-chan string {
	ch := make(chan string, 100)
	go func() {
		defer close(ch)
		for ctx.Err() == nil {
			line, err := p.ReadLine()
			if err != nil {
				return
			}
			if line == "" {
				continue
			}
			select {
			case ch <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
