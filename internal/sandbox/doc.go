/*
Package sandbox runs playground sketches in isolated JavaScript contexts.

# Overview

Each run gets a fresh goja VM on its own goroutine. The VM is loaded with:

  - A headless p5-compatible runtime (setup/draw, shapes, math, vectors)
  - The instrumentation shim that forwards console and error activity
  - The sketch source, evaluated inside the shim's try/catch boundary

Node-style globals (require, process, module) are removed and timers are
no-ops.

# Message Flow

A context talks to the host only through its Channel, which stamps every
JSON frame with the context's run id:

	{"kind":"console","method":"log","args":["hello","42"]}
	{"kind":"error","message":"x is not defined","line":3,"column":5}

The Host reads one inbox on a single dispatch goroutine. Under the host
lock it compares the envelope's run id with the current run and applies
the frame to the playground store, or drops it as stale.

# Lifecycle

	Idle -> Building -> Active -> Idle

Run, Stop, Reset and Close discard the current context immediately: its
channel stops accepting posts and its VM is interrupted.

# Usage Example

	store := playground.NewStore()
	host := sandbox.NewHost(store, sandbox.DefaultConfig(), sandbox.WithLogger(log))
	defer host.Close()

	host.SetCode(`console.log("hello", 42)`)
	runID, _ := host.Run()
*/
package sandbox
