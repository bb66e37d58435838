// Package main serves value store workbooks from a local directory over the
// file-management ReadFile RPC.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/valuestore/internal/cmd/filemgmtdev"
)

func main() {
	log.SetPrefix("[FILEMGMT-DEV] ")
	cfg, err := filemgmtdev.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := filemgmtdev.Run(ctx, cfg); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
