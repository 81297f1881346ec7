package serial

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"go.bug.st/serial"
)

// fakePort feeds canned receive bytes and records writes. Unimplemented
// serial.Port methods are never reached by these tests.
type fakePort struct {
	serial.Port
	rx      *bytes.Reader
	tx      bytes.Buffer
	resets  int
	timeout bool
	eof     bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.rx.Len() == 0 {
		if f.eof {
			return 0, io.EOF
		}
		f.timeout = true
		return 0, nil // read timeout
	}
	return f.rx.Read(p)
}

func (f *fakePort) Write(p []byte) (int, error) {
	return f.tx.Write(p)
}

func (f *fakePort) ResetInputBuffer() error {
	f.resets++
	return nil
}

func TestReadLine(t *testing.T) {
	for _, tt := range []struct {
		name    string
		rx      string
		want    string
		timeout bool
	}{
		{"cr terminated", "/0OK\r", "/0OK", false},
		{"crlf terminated", "/0OK\r\n", "/0OK", false},
		{"leading terminators skipped", "\r\n/0OK\r", "/0OK", false},
		{"timeout returns partial", "/0O", "/0O", true},
		{"timeout on silence", "", "", true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakePort{rx: bytes.NewReader([]byte(tt.rx))}
			p := &Port{port: f}
			got, err := p.ReadLine()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ReadLine() = %q, want %q", got, tt.want)
			}
			if f.timeout != tt.timeout {
				t.Errorf("timed out = %v, want %v", f.timeout, tt.timeout)
			}
		})
	}
}

func TestWriteLine(t *testing.T) {
	f := &fakePort{rx: bytes.NewReader(nil)}
	p := &Port{port: f}
	if err := p.WriteLine([]byte("/1ZR"), '\r'); err != nil {
		t.Fatal(err)
	}
	if got := f.tx.String(); got != "/1ZR\r" {
		t.Errorf("wrote %q, want %q", got, "/1ZR\r")
	}
}

func TestResetInput(t *testing.T) {
	f := &fakePort{rx: bytes.NewReader(nil)}
	p := &Port{port: f}
	if err := p.ResetInput(); err != nil {
		t.Fatal(err)
	}
	if f.resets != 1 {
		t.Errorf("resets = %d, want 1", f.resets)
	}
}

func TestLines(t *testing.T) {
	f := &fakePort{rx: bytes.NewReader([]byte("/0OK\rPda80001F4m\r\n")), eof: true}
	p := &Port{port: f}
	lines := p.Lines(context.Background())
	want := []string{"/0OK", "Pda80001F4m"}
	for i, w := range want {
		select {
		case got, ok := <-lines:
			if !ok {
				t.Fatalf("channel closed before line %d", i)
			}
			if got != w {
				t.Errorf("line %d = %q, want %q", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for line %d", i)
		}
	}
	select {
	case _, ok := <-lines:
		if ok {
			t.Error("unexpected extra line")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after read error")
	}
}

func TestListPorts(t *testing.T) {
	pp, err := ListPorts()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pp {
		t.Log(p)
	}
}
