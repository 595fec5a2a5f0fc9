package socketrpc_test

import (
	"bufio"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinytelemetry/pulse/internal/monitor"
	"github.com/tinytelemetry/pulse/internal/socketrpc"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

func startTestServer(t *testing.T) (string, *monitor.Local, *socketrpc.Server) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	mon := monitor.NewLocal(monitor.Options{FrameRate: 60, Width: 80, Height: 30, Rand: waveform.NewRand(5)})
	srv := socketrpc.NewServer(sockPath, mon)
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	return sockPath, mon, srv
}

func TestRoundtrip(t *testing.T) {
	sockPath, mon, srv := startTestServer(t)
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	t.Run("Configure", func(t *testing.T) {
		if err := client.Configure(true, "normal"); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 138; i++ {
			_ = mon.Advance()
		}
	})

	t.Run("State", func(t *testing.T) {
		st, err := client.State()
		if err != nil {
			t.Fatal(err)
		}
		if st.EffectiveMode != "normal" || st.Phase != 38 || st.Frames != 138 {
			t.Fatalf("unexpected state: %+v", st)
		}
	})

	t.Run("Window", func(t *testing.T) {
		w, err := client.Window(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(w) != 10 || w[9] != 1.0 {
			t.Fatalf("unexpected window: %v", w)
		}
	})

	t.Run("Beats", func(t *testing.T) {
		beats, err := client.Beats(5)
		if err != nil {
			t.Fatal(err)
		}
		if len(beats) != 1 || beats[0].RRFrames != 100 || beats[0].BPM != 36 {
			t.Fatalf("unexpected beats: %+v", beats)
		}
	})

	t.Run("UnknownModeIsInactive", func(t *testing.T) {
		if err := client.Configure(true, "sideways"); err != nil {
			t.Fatal(err)
		}
		st, err := client.State()
		if err != nil {
			t.Fatal(err)
		}
		if st.EffectiveMode != "inactive" || st.Phase != 0 {
			t.Fatalf("unexpected state: %+v", st)
		}
	})

	t.Run("Advance", func(t *testing.T) {
		if err := client.Advance(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestParseError(t *testing.T) {
	sockPath, _, srv := startTestServer(t)
	defer srv.Stop()

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("{not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(line, "-32700") {
		t.Fatalf("response = %s, want parse error", line)
	}
}

func TestMethodNotFound(t *testing.T) {
	sockPath, _, srv := startTestServer(t)
	defer srv.Stop()

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"jsonrpc":"2.0","id":9,"method":"Rewind","params":{}}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(line, "-32601") || !strings.Contains(line, `"id":9`) {
		t.Fatalf("response = %s, want method not found for id 9", line)
	}
}

func TestSecondServerRefused(t *testing.T) {
	sockPath, _, srv := startTestServer(t)
	defer srv.Stop()

	other := socketrpc.NewServer(sockPath, monitor.NewLocal(monitor.Options{}))
	if err := other.Start(); err == nil {
		other.Stop()
		t.Fatal("expected error starting a second server on the same socket")
	}
}

func TestStopClosesClients(t *testing.T) {
	sockPath, _, srv := startTestServer(t)

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if _, err := client.State(); err != nil {
		t.Fatalf("State: %v", err)
	}

	srv.Stop()
	srv.Stop()
	if _, err := client.State(); err == nil {
		t.Fatal("expected error after server stop")
	}
}
