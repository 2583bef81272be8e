package hub

import (
	"errors"
	"fmt"
	"io"

	"github.com/wricardo/mcp-training/gridshare/metrics"
)

// ErrConnectionPanic is returned by Serve when handling a frame panicked.
var ErrConnectionPanic = errors.New("connection handler panicked")

// Receiver blocks until the next inbound frame is available. io.EOF or any
// other error ends the connection.
type Receiver func() ([]byte, error)

// Serve runs one connection from join to leave: it joins c, feeds every frame
// from next into HandleMessage, and always leaves on return. A panic while
// handling a frame is recovered and only affects c.
func (h *Hub) Serve(c Connection, next Receiver) (err error) {
	if err := h.Join(c); err != nil {
		_ = c.Close()
		return err
	}
	defer h.Leave(c)

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered panic on connection", "conn_id", c.ID(), "panic", r)
			h.metrics.Message("frame", metrics.OutcomeUnexpected)
			err = fmt.Errorf("%w: %v", ErrConnectionPanic, r)
		}
	}()

	for {
		frame, err := next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		// Dropped by a failed send or the idle reaper while we were reading.
		if !h.conns.Contains(c.ID()) {
			return nil
		}

		h.HandleMessage(c, frame)
	}
}
