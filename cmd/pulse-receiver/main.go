// main.go: pulse receiver CLI
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Command pulse-receiver listens for one producer connection, converts the
// incoming wire frames into a Chrome/Perfetto-compatible JSON trace file,
// and exits: 0 on a clean EOF, non-zero on a protocol error.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net"
	"os"

	"github.com/agilira/pulse/internal/receiver"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("pulse-receiver", flag.ContinueOnError)
	listen := fs.String("listen", "127.0.0.1:4302", "address to listen on")
	out := fs.String("out", "trace.json", "path to write the JSON trace file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Printf("pulse-receiver: listen %s: %v", *listen, err)
		return 1
	}
	defer ln.Close()

	log.Printf("pulse-receiver: listening on %s", *listen)
	conn, err := ln.Accept()
	if err != nil {
		log.Printf("pulse-receiver: accept: %v", err)
		return 1
	}
	defer conn.Close()

	log.Printf("pulse-receiver: connection accepted, converting to %s", *out)
	trace := receiver.NewTraceFile()
	if err := receiver.Run(conn, trace); err != nil {
		log.Printf("pulse-receiver: protocol error: %v", err)
		writeTrace(*out, trace)
		return 1
	}

	if err := writeTrace(*out, trace); err != nil {
		log.Printf("pulse-receiver: writing %s: %v", *out, err)
		return 1
	}

	log.Printf("pulse-receiver: wrote %s (%d events)", *out, len(trace.TraceEvents))
	return 0
}

func writeTrace(path string, trace *receiver.TraceFile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	return enc.Encode(trace)
}
