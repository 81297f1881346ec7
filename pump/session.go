package pump

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// State is the session lifecycle position. Only the Session mutates it.
type State uint32

const (
	Disconnected State = iota
	Connected
	Referenced
	Busy
	Faulted
)

var stateNames = []string{
	Disconnected: "Disconnected",
	Connected:    "Connected",
	Referenced:   "Referenced",
	Busy:         "Busy",
	Faulted:      "Faulted",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Config is everything needed to reach and calibrate one physical unit.
type Config struct {
	Port        string
	Baud        int
	Address     int
	Calibration Calibration
	Limits      Limits
}

// Dialer opens a transport for a config. Swappable for tests and for the
// AMQP daemon's startup wiring.
type Dialer func(port string, baud int) (Transport, error)

// Session owns the connect → reference → command → disconnect lifecycle
// for one pump. It must be driven by one caller at a time; commands are
// inherently sequential, so serialize at the caller (a single worker, not
// a lock per call).
type Session struct {
	cfg       Config
	dial      Dialer
	transport Transport
	formatter *Formatter
	state     atomic.Uint32
	logger    *zap.Logger
}

func NewSession(cfg Config, logger *zap.Logger) *Session {
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits
		if cfg.Calibration.StepsPerStroke > 0 {
			cfg.Limits.StepsPerStroke = cfg.Calibration.StepsPerStroke
		}
	}
	return &Session{
		cfg:    cfg,
		dial:   Open,
		logger: logger,
	}
}

// WithDialer replaces the transport dialer. Used by tests and daemons
// that open the port themselves.
func (s *Session) WithDialer(d Dialer) *Session {
	s.dial = d
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(uint32(st))
}

var (
	ErrNotConnected  = errors.New("pump: session is not connected")
	ErrNotReferenced = errors.New("pump: session must be initialized before motion commands")
	ErrFaulted       = errors.New("pump: session is faulted; disconnect and reconnect")
)

// Connect opens the transport. Disconnected → Connected; a failed open
// faults the session.
func (s *Session) Connect() error {
	if s.State() != Disconnected {
		return errors.New("pump: already connected")
	}
	f, err := NewFormatter(s.cfg.Limits, s.cfg.Address)
	if err != nil {
		return err
	}
	t, err := s.dial(s.cfg.Port, s.cfg.Baud)
	if err != nil {
		s.setState(Faulted)
		return err
	}
	s.transport = t
	s.formatter = f
	s.setState(Connected)
	s.logger.Info("connected",
		zap.String("port", s.cfg.Port),
		zap.Int("baud", s.cfg.Baud),
		zap.Int("address", s.cfg.Address),
	)
	return nil
}

// Initialize sends the reference command. Connected/Referenced →
// Referenced; losing the connection faults the session. On any other
// failure the caller decides whether to re-issue it; the session never
// retries a motion command on its own.
func (s *Session) Initialize() (string, error) {
	switch s.State() {
	case Connected, Referenced:
	case Faulted:
		return "", ErrFaulted
	default:
		return "", ErrNotConnected
	}
	reply, err := s.send(Home{})
	if err != nil {
		if isConnectionLoss(err) {
			s.setState(Faulted)
		}
		return "", err
	}
	s.setState(Referenced)
	return reply, nil
}

// Execute runs one motion or setup command. Referenced ⇄ Busy. A
// transport failure that is not a connection loss leaves the session
// Referenced, since the next Home makes the device state known again.
func (s *Session) Execute(cmd Command) (string, error) {
	switch s.State() {
	case Referenced:
	case Faulted:
		return "", ErrFaulted
	case Disconnected:
		return "", ErrNotConnected
	default:
		return "", ErrNotReferenced
	}
	s.setState(Busy)
	reply, err := s.send(cmd)
	if err != nil {
		if isConnectionLoss(err) {
			s.setState(Faulted)
		} else {
			s.setState(Referenced)
		}
		return "", err
	}
	s.setState(Referenced)
	return reply, nil
}

// isConnectionLoss separates unrecoverable transport failures from ones a
// re-reference can recover from.
func isConnectionLoss(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr) || errors.Is(err, errTransportClosed)
}

func (s *Session) send(cmd Command) (string, error) {
	text, addr, err := s.formatter.Render(cmd)
	if err != nil {
		return "", err
	}
	s.logger.Debug("sending", zap.String("cmd", text), zap.Int("address", addr))
	reply, err := s.transport.Send(text, addr)
	if err != nil {
		s.logger.Error("send failed", zap.String("cmd", text), zap.Error(err))
		return "", err
	}
	s.logger.Debug("reply", zap.String("cmd", text), zap.String("raw", reply))
	return reply, nil
}

// Calibration exposes the session's volume mapping for callers building
// step counts.
func (s *Session) Calibration() Calibration {
	return s.cfg.Calibration
}

// Disconnect closes the transport from any state. Close errors are logged
// rather than surfaced, and calling it again is a no-op.
func (s *Session) Disconnect() {
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.logger.Warn("close failed", zap.Error(err))
		}
		s.transport = nil
	}
	s.setState(Disconnected)
}
