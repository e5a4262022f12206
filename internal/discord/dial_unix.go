//go:build !windows

package discord

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// Sandboxed Discord builds put the socket one level down.
var socketSubdirs = []string{"", "app/com.discordapp.Discord", "snap.discord"}

func socketDirs() []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" && !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	if !seen["/tmp"] {
		dirs = append(dirs, "/tmp")
	}
	return dirs
}

// socketPaths lists every candidate socket in probe order.
func socketPaths() []string {
	var paths []string
	for _, dir := range socketDirs() {
		for _, sub := range socketSubdirs {
			for i := 0; i <= 9; i++ {
				paths = append(paths, filepath.Join(dir, sub, fmt.Sprintf("discord-ipc-%d", i)))
			}
		}
	}
	return paths
}

func dialSocket(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	var lastErr error
	for _, path := range socketPaths() {
		if _, err := os.Stat(path); err != nil {
			lastErr = err
			continue
		}
		dialCtx, cancel := context.WithTimeout(ctx, ioTimeout)
		conn, err := d.DialContext(dialCtx, "unix", path)
		cancel()
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no discord socket found: %w", lastErr)
}
