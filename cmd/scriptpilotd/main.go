package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// main 是 ScriptPilot 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx)
	stop()
	os.Exit(code)
}
