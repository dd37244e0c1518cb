// Package playground holds the execution state of the sketch playground.
//
// The Store is the single authoritative snapshot the UI renders from:
// the script being edited, the run flag, captured console output, the
// last script error and the display theme. It knows nothing about the
// sandbox; the sandbox host drives it.
//
// Components:
//   - Store: state holder with observer subscriptions
//   - lineBuffer: bounded ring of output lines
//   - Slot: one-shot hand-off buffers that pre-seed the script
//
// Concurrency:
//   - Mutations are expected from a single writer (the sandbox host)
//   - Snapshot reads are safe from any goroutine
//   - Listeners run synchronously after each mutation and must not block
//
// Example Usage:
//
//	store := playground.NewStore(playground.WithOutputLimit(500))
//	unsubscribe := store.Subscribe(func(s playground.Snapshot) {
//	    render(s)
//	})
//	defer unsubscribe()
//	store.SetCode("console.log('hi')")
package playground
