package discord

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
)

// Discord IPC opcodes.
const (
	opHandshake = 0
	opFrame     = 1
	opClose     = 2
	opPing      = 3
	opPong      = 4
)

// Frames larger than this are treated as a corrupt stream.
const maxFrameSize = 1 << 20

const ioTimeout = 5 * time.Second

// ActivityTypeListening renders as "Listening to <name>".
const ActivityTypeListening = 2

// Activity is the Rich Presence payload sent via SET_ACTIVITY.
type Activity struct {
	Type       int         `json:"type"`
	Name       string      `json:"name,omitempty"`
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Buttons    []Button    `json:"buttons,omitempty"`
	Instance   bool        `json:"instance"`
}

// Timestamps are Unix milliseconds.
type Timestamps struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ActivityError is an ERROR response from Discord to a command. The
// connection is still usable after one.
type ActivityError struct {
	Code    int
	Message string
}

func (e *ActivityError) Error() string {
	return fmt.Sprintf("discord error %d: %s", e.Code, e.Message)
}

type ipcClient struct {
	conn net.Conn
}

// ipcConnect dials the local Discord socket and performs the handshake.
func ipcConnect(ctx context.Context, appID string) (*ipcClient, error) {
	conn, err := dialSocket(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial discord socket: %w", err)
	}
	return handshake(conn, appID)
}

// handshake identifies as appID and waits for READY. conn is closed on
// failure.
func handshake(conn net.Conn, appID string) (*ipcClient, error) {
	c := &ipcClient{conn: conn}

	hello, _ := json.Marshal(map[string]any{
		"v":         1,
		"client_id": appID,
	})
	c.deadline()
	if err := c.writeFrame(opHandshake, hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake write: %w", err)
	}

	op, data, err := c.readFrame()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake read: %w", err)
	}
	if op == opClose {
		conn.Close()
		return nil, fmt.Errorf("handshake rejected: %s", closeReason(data))
	}

	var ready struct {
		Cmd string `json:"cmd"`
		Evt string `json:"evt"`
	}
	if err := json.Unmarshal(data, &ready); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake response: %w", err)
	}
	if ready.Evt != "READY" {
		conn.Close()
		return nil, fmt.Errorf("handshake response: unexpected event %q", ready.Evt)
	}
	return c, nil
}

// SetActivity replaces the current activity. A nil activity clears it.
func (c *ipcClient) SetActivity(a *Activity) error {
	args := map[string]any{
		"pid": os.Getpid(),
	}
	if a != nil {
		args["activity"] = a
	}
	payload, err := json.Marshal(map[string]any{
		"cmd":   "SET_ACTIVITY",
		"args":  args,
		"nonce": nonce(),
	})
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	c.deadline()
	if err := c.writeFrame(opFrame, payload); err != nil {
		return err
	}

	data, err := c.readResponse()
	if err != nil {
		return err
	}

	var resp struct {
		Evt  string `json:"evt"`
		Data struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Evt == "ERROR" {
		return &ActivityError{Code: resp.Data.Code, Message: resp.Data.Message}
	}
	return nil
}

// readResponse returns the next command frame, answering pings on the way.
func (c *ipcClient) readResponse() ([]byte, error) {
	for {
		op, data, err := c.readFrame()
		if err != nil {
			return nil, err
		}
		switch op {
		case opFrame:
			return data, nil
		case opPing:
			if err := c.writeFrame(opPong, data); err != nil {
				return nil, err
			}
		case opClose:
			return nil, fmt.Errorf("connection closed by discord: %s", closeReason(data))
		}
	}
}

func (c *ipcClient) Close() error {
	c.deadline()
	_ = c.writeFrame(opClose, []byte("{}"))
	return c.conn.Close()
}

func (c *ipcClient) deadline() {
	_ = c.conn.SetDeadline(time.Now().Add(ioTimeout))
}

// writeFrame sends a Discord IPC frame: [opcode LE u32][length LE u32][payload].
func (c *ipcClient) writeFrame(opcode uint32, payload []byte) error {
	frame := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], opcode)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)
	_, err := c.conn.Write(frame)
	return err
}

// readFrame reads a Discord IPC frame, allocating a buffer of the exact
// size declared in the header.
func (c *ipcClient) readFrame() (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return 0, nil, err
	}
	opcode := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > maxFrameSize {
		return 0, nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return 0, nil, err
	}
	return opcode, payload, nil
}

func closeReason(data []byte) string {
	var msg struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.Message == "" {
		return string(data)
	}
	return fmt.Sprintf("%d %s", msg.Code, msg.Message)
}

func nonce() string {
	return uuid.NewString()
}
