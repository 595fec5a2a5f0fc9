package socketrpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/pulse/internal/model"
)

// Client implements model.Monitor over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	timeout time.Duration
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	return &Client{
		timeout: 5 * time.Second,
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
func (c *Client) call(method string, params interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

var _ model.Monitor = (*Client)(nil)

// Configure applies a mode change on the server.
func (c *Client) Configure(active bool, mode string) error {
	return c.call("Configure", map[string]interface{}{"Active": active, "Mode": mode}, nil)
}

// State returns the server's render state.
func (c *Client) State() (model.MonitorState, error) {
	var result model.MonitorState
	err := c.call("State", nil, &result)
	return result, err
}

// Window returns the newest n samples drawn by the server.
func (c *Client) Window(n int) ([]float64, error) {
	var result []float64
	err := c.call("Window", map[string]interface{}{"N": n}, &result)
	return result, err
}

// Beats returns up to n of the newest beats detected by the server.
func (c *Client) Beats(n int) ([]model.Beat, error) {
	var result []model.Beat
	err := c.call("Beats", map[string]interface{}{"N": n}, &result)
	return result, err
}

// Advance is a no-op: the server drives its own frame loop.
func (c *Client) Advance() error {
	return nil
}
