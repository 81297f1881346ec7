package pump

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type sentCommand struct {
	text string
	addr int
}

// echoTransport answers every command with "OK" and records what was
// sent. fail, when set, is returned for the next Send.
type echoTransport struct {
	sent   []sentCommand
	fail   error
	closed int
}

func (e *echoTransport) Send(command string, addr int) (string, error) {
	if e.fail != nil {
		err := e.fail
		e.fail = nil
		return "", err
	}
	e.sent = append(e.sent, sentCommand{text: command, addr: addr})
	return "OK", nil
}

func (e *echoTransport) Close() error {
	e.closed++
	return nil
}

func testSession(t *testing.T) (*Session, *echoTransport) {
	t.Helper()
	tr := &echoTransport{}
	s := NewSession(Config{
		Port:        "COM8",
		Baud:        9600,
		Address:     1,
		Calibration: Calibration{SyringeUL: 1250, StepsPerStroke: 100000},
	}, zap.NewNop())
	s.WithDialer(func(string, int) (Transport, error) {
		return tr, nil
	})
	return s, tr
}

func TestSession_Lifecycle(t *testing.T) {
	s, tr := testSession(t)
	if s.State() != Disconnected {
		t.Fatalf("initial state = %v", s.State())
	}
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Connected {
		t.Fatalf("state after connect = %v", s.State())
	}
	if _, err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Referenced {
		t.Fatalf("state after initialize = %v", s.State())
	}
	if _, err := s.Execute(SelectValve{Port: 1}); err != nil {
		t.Fatal(err)
	}
	reply, err := s.Execute(Aspirate{Steps: 4000})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "OK" {
		t.Errorf("reply = %q, want OK", reply)
	}

	want := []sentCommand{
		{"ZR", 1},
		{"I1R", 1},
		{"A4000R", 1},
	}
	if len(tr.sent) != len(want) {
		t.Fatalf("sent %d commands, want %d", len(tr.sent), len(want))
	}
	for i, w := range want {
		if tr.sent[i] != w {
			t.Errorf("command %d = %+v, want %+v", i, tr.sent[i], w)
		}
	}
}

func TestSession_MotionRequiresReference(t *testing.T) {
	s, _ := testSession(t)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Execute(SelectValve{Port: 1}); !errors.Is(err, ErrNotReferenced) {
		t.Errorf("err = %v, want ErrNotReferenced", err)
	}
}

func TestSession_TransportErrorLeavesReferenced(t *testing.T) {
	s, tr := testSession(t)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	tr.fail = &TransportError{Command: "I1R", Err: errors.New("timeout")}
	if _, err := s.Execute(SelectValve{Port: 1}); err == nil {
		t.Fatal("expected a transport failure")
	}
	if s.State() != Referenced {
		t.Errorf("state = %v, want Referenced (safe to retry)", s.State())
	}
	// the session still works afterwards
	if _, err := s.Execute(SelectValve{Port: 2}); err != nil {
		t.Errorf("retry after transport error: %v", err)
	}
}

func TestSession_ConnectionDropFaults(t *testing.T) {
	s, tr := testSession(t)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	tr.fail = &ConnectionError{Port: "COM8", Err: errors.New("gone")}
	if _, err := s.Execute(SelectValve{Port: 1}); err == nil {
		t.Fatal("expected a connection failure")
	}
	if s.State() != Faulted {
		t.Errorf("state = %v, want Faulted", s.State())
	}
	if _, err := s.Execute(SelectValve{Port: 1}); !errors.Is(err, ErrFaulted) {
		t.Errorf("err = %v, want ErrFaulted", err)
	}
}

func TestSession_ConnectionDropDuringInitializeFaults(t *testing.T) {
	s, tr := testSession(t)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	tr.fail = &ConnectionError{Port: "COM8", Err: errors.New("gone")}
	if _, err := s.Initialize(); err == nil {
		t.Fatal("expected a connection failure")
	}
	if s.State() != Faulted {
		t.Errorf("state = %v, want Faulted", s.State())
	}
	if _, err := s.Initialize(); !errors.Is(err, ErrFaulted) {
		t.Errorf("err = %v, want ErrFaulted", err)
	}
}

func TestSession_TransportErrorDuringInitializeStaysConnected(t *testing.T) {
	s, tr := testSession(t)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	tr.fail = &TransportError{Command: "ZR", Err: errors.New("timeout")}
	if _, err := s.Initialize(); err == nil {
		t.Fatal("expected a transport failure")
	}
	if s.State() != Connected {
		t.Errorf("state = %v, want Connected (safe to re-reference)", s.State())
	}
	if _, err := s.Initialize(); err != nil {
		t.Errorf("re-reference after transport error: %v", err)
	}
}

func TestSession_InvalidCommandNeverSent(t *testing.T) {
	s, tr := testSession(t)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	n := len(tr.sent)
	var invalid *InvalidCommand
	if _, err := s.Execute(SelectValve{Port: 40}); !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *InvalidCommand", err)
	}
	if len(tr.sent) != n {
		t.Errorf("invalid command reached the transport")
	}
	if s.State() != Referenced {
		t.Errorf("state = %v, want Referenced", s.State())
	}
}

func TestSession_DisconnectTwice(t *testing.T) {
	s, tr := testSession(t)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	s.Disconnect()
	s.Disconnect()
	if tr.closed != 1 {
		t.Errorf("transport closed %d times, want 1", tr.closed)
	}
	if s.State() != Disconnected {
		t.Errorf("state = %v, want Disconnected", s.State())
	}
}

func TestSession_ConnectFailureFaults(t *testing.T) {
	s, _ := testSession(t)
	s.WithDialer(func(port string, _ int) (Transport, error) {
		return nil, &ConnectionError{Port: port, Err: errors.New("busy")}
	})
	if err := s.Connect(); err == nil {
		t.Fatal("expected connect to fail")
	}
	if s.State() != Faulted {
		t.Errorf("state = %v, want Faulted", s.State())
	}
}
