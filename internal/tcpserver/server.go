package tcpserver

import (
	"bufio"
	"context"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultClientBufferSize is the default number of lines queued per client.
	DefaultClientBufferSize = 4096

	// DefaultWriteTimeout bounds a single flush to a client.
	DefaultWriteTimeout = 5 * time.Second
)

// ServerConfig holds tunable parameters for the TCP server.
type ServerConfig struct {
	ClientBufferSize int
	WriteTimeout     time.Duration
}

// Server streams newline-delimited text to every connected TCP client.
// A client that falls behind loses lines instead of stalling the writer.
type Server struct {
	listener     net.Listener
	addr         string
	clientBuffer int
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup

	mu      sync.Mutex
	clients map[*client]struct{}
	dropped atomic.Int64
}

type client struct {
	conn  net.Conn
	lines chan string
	done  chan struct{}
}

// NewServer creates a new TCP server. Default addr is "127.0.0.1:4000".
func NewServer(addr string, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = "127.0.0.1:4000"
	}
	clientBuffer := DefaultClientBufferSize
	writeTimeout := DefaultWriteTimeout
	if len(conf) > 0 {
		if conf[0].ClientBufferSize > 0 {
			clientBuffer = conf[0].ClientBufferSize
		}
		if conf[0].WriteTimeout > 0 {
			writeTimeout = conf[0].WriteTimeout
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:         addr,
		clientBuffer: clientBuffer,
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
		clients:      make(map[*client]struct{}),
	}
}

// Start begins accepting TCP connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					continue
				}
			}
			c := &client{conn: conn, lines: make(chan string, s.clientBuffer), done: make(chan struct{})}
			s.mu.Lock()
			s.clients[c] = struct{}{}
			s.mu.Unlock()

			s.wg.Add(2)
			go s.writeLoop(c)
			go s.watchClose(c)
		}
	}()

	return nil
}

func (s *Server) writeLoop(c *client) {
	defer s.wg.Done()
	defer s.remove(c)

	w := bufio.NewWriter(c.conn)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-c.done:
			return
		case line := <-c.lines:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if _, err := w.WriteString(line); err != nil {
				return
			}
			if err := w.WriteByte('\n'); err != nil {
				return
			}
			// Coalesce whatever is already queued into one flush.
			for pending := len(c.lines); pending > 0; pending-- {
				w.WriteString(<-c.lines)
				w.WriteByte('\n')
			}
			if err := w.Flush(); err != nil {
				log.Printf("tcpserver: write to %s: %v", c.conn.RemoteAddr(), err)
				return
			}
		}
	}
}

// watchClose reads until the peer hangs up so disconnected clients are
// removed even while nothing is being written.
func (s *Server) watchClose(c *client) {
	defer s.wg.Done()
	buf := make([]byte, 512)
	for {
		if _, err := c.conn.Read(buf); err != nil {
			s.remove(c)
			return
		}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		close(c.done)
		c.conn.Close()
	}
}

// Broadcast queues line for every connected client.
func (s *Server) Broadcast(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.lines <- line:
		default:
			s.dropped.Add(1)
		}
	}
}

// Count returns the number of connected clients.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped returns how many lines were discarded for slow clients.
func (s *Server) Dropped() int64 {
	return s.dropped.Load()
}

// Stop disconnects all clients and shuts down the TCP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
