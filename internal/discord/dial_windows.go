//go:build windows

package discord

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

func socketPaths() []string {
	paths := make([]string, 0, 10)
	for i := 0; i <= 9; i++ {
		paths = append(paths, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
	}
	return paths
}

func dialSocket(ctx context.Context) (net.Conn, error) {
	var lastErr error
	for _, path := range socketPaths() {
		dialCtx, cancel := context.WithTimeout(ctx, ioTimeout)
		conn, err := winio.DialPipeContext(dialCtx, path)
		cancel()
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no discord pipe found: %w", lastErr)
}
