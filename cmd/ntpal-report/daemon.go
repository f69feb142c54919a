package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/sevlyar/go-daemon"
)

const daemonName = "ntpal-report"

func newDaemonContext() *daemon.Context {
	return &daemon.Context{
		PidFileName: fmt.Sprintf("/var/run/%s.pid", daemonName),
		PidFilePerm: 0644,
		LogFileName: fmt.Sprintf("/var/log/%s.log", daemonName),
		LogFilePerm: 0640,
		WorkDir:     "./",
		Umask:       027,
		Args:        append([]string{daemonName}, os.Args[1:]...),
	}
}

// daemonize forks the server into the background. The parent gets
// parent=true and should exit; release must run before the child exits.
func daemonize(ctx *daemon.Context) (parent bool, release func(), err error) {
	child, err := ctx.Reborn()
	if err != nil {
		return false, nil, fmt.Errorf("start daemon: %w", err)
	}
	if child != nil {
		return true, func() {}, nil
	}
	return false, func() { ctx.Release() }, nil
}

func stopDaemon(ctx *daemon.Context) error {
	process, err := ctx.Search()
	if err != nil {
		return fmt.Errorf("find daemon: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}
	return nil
}
