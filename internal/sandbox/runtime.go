package sandbox

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Context is one isolated execution of a sketch: a goja VM driven by its
// own goroutine. It shares nothing with the host except its Channel.
type Context struct {
	runID   uint64
	cfg     Config
	channel *Channel
	logger  *zap.Logger
	vm      *goja.Runtime
	rng     *source
	started time.Time

	state  atomic.Int32
	frames atomic.Int64

	done        chan struct{}
	exited      chan struct{}
	discardOnce sync.Once
}

// newContext builds a VM with the host bridge installed. The program is
// injected later by start.
func newContext(runID uint64, cfg Config, inbox chan<- Envelope, logger *zap.Logger) (*Context, error) {
	c := &Context{
		runID:   runID,
		cfg:     cfg,
		logger:  logger.With(zap.Uint64("run_id", runID)),
		vm:      goja.New(),
		rng:     newSource(timeSeed()),
		started: time.Now(),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	c.state.Store(int32(Building))
	c.channel = newChannel(runID, inbox, c.done)

	if cfg.MaxCallStackSize > 0 {
		c.vm.SetMaxCallStackSize(cfg.MaxCallStackSize)
	}

	if err := c.setupGlobals(); err != nil {
		return nil, fmt.Errorf("failed to set up context globals: %w", err)
	}
	return c, nil
}

// setupGlobals configures the host bridge and removes dangerous globals
func (c *Context) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := c.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	// Timers are not supported; sketches animate through draw().
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		if err := c.vm.Set(name, noop); err != nil {
			return err
		}
	}

	sketchLog := c.logger.Named("sketch")
	host := c.vm.NewObject()
	if err := host.Set("post", func(frame string) bool {
		return c.channel.Post([]byte(frame))
	}); err != nil {
		return err
	}
	if err := host.Set("debug", func(method, text string) {
		sketchLog.Debug(text, zap.String("method", method))
	}); err != nil {
		return err
	}
	if err := host.Set("now", func() float64 {
		return float64(time.Since(c.started).Microseconds()) / 1000
	}); err != nil {
		return err
	}
	if err := c.vm.Set("__host", host); err != nil {
		return err
	}

	native := c.vm.NewObject()
	if err := native.Set("random", c.rng.random); err != nil {
		return err
	}
	if err := native.Set("randomGaussian", c.rng.gaussian); err != nil {
		return err
	}
	if err := native.Set("randomSeed", func(seed float64) {
		c.rng.seed(uint64(int64(seed)))
	}); err != nil {
		return err
	}
	return c.vm.Set("__native", native)
}

// Lifecycle reports Building until the goroutine starts executing,
// Active afterwards and Idle once discarded.
func (c *Context) Lifecycle() Lifecycle {
	return Lifecycle(c.state.Load())
}

// Frames returns the number of draw() calls completed.
func (c *Context) Frames() int64 {
	return c.frames.Load()
}

// Exited is closed when the context goroutine returns.
func (c *Context) Exited() <-chan struct{} {
	return c.exited
}

// start injects program and begins executing it on a new goroutine.
func (c *Context) start(program string) {
	go c.run(program)
}

// Discard detaches the context from the host and interrupts its VM.
// It does not wait for the goroutine to return.
func (c *Context) Discard() {
	c.discardOnce.Do(func() {
		c.state.Store(int32(Idle))
		close(c.done)
		c.vm.Interrupt("context discarded")
	})
}

func (c *Context) discarded() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Context) run(program string) {
	defer close(c.exited)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("sketch context panicked", zap.Any("panic", r))
			c.postError(fmt.Sprintf("sketch runtime failed: %v", r))
		}
	}()

	c.state.CompareAndSwap(int32(Building), int32(Active))

	if _, err := c.vm.RunScript("sketch.js", program); err != nil {
		if !c.interrupted(err) {
			c.logger.Warn("sketch program failed", zap.Error(err))
			c.reportUncaught(err)
		}
		return
	}

	sandbox := c.vm.Get("__sandbox").ToObject(c.vm)
	if err := c.callMethod(sandbox, "setup"); err != nil {
		if !c.interrupted(err) {
			c.reportUncaught(err)
		}
		return
	}
	c.animate(sandbox)
}

// animate calls draw() on a ticker until noLoop(), an uncaught error, the
// frame budget or discard.
func (c *Context) animate(sandbox *goja.Object) {
	hasDraw, ok := goja.AssertFunction(sandbox.Get("hasDraw"))
	if !ok {
		return
	}
	v, err := hasDraw(sandbox)
	if err != nil || !v.ToBoolean() {
		return
	}

	interval := c.interval(sandbox)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		if !sandbox.Get("looping").ToBoolean() {
			return
		}
		if err := c.callMethod(sandbox, "frame"); err != nil {
			if !c.interrupted(err) {
				c.reportUncaught(err)
			}
			return
		}

		n := c.frames.Add(1)
		if c.cfg.MaxFrames > 0 && n >= int64(c.cfg.MaxFrames) {
			return
		}
		if next := c.interval(sandbox); next != interval {
			interval = next
			ticker.Reset(interval)
		}
	}
}

// interval honours frameRate() from the sketch. Non-finite or
// non-positive rates fall back to the configured rate.
func (c *Context) interval(sandbox *goja.Object) time.Duration {
	if v := sandbox.Get("fps"); v != nil {
		if fps := v.ToFloat(); fps > 0 && !math.IsInf(fps, 0) && !math.IsNaN(fps) {
			return Config{FrameRate: fps}.frameInterval()
		}
	}
	return c.cfg.frameInterval()
}

func (c *Context) callMethod(obj *goja.Object, name string) error {
	fn, ok := goja.AssertFunction(obj.Get(name))
	if !ok {
		return fmt.Errorf("runtime method %q missing", name)
	}
	_, err := fn(obj)
	return err
}

// reportUncaught routes an error that escaped the sketch to the error
// listeners registered inside the context.
func (c *Context) reportUncaught(err error) {
	if c.discarded() {
		return
	}
	message, line, column := describe(err)

	sandbox := c.vm.Get("__sandbox")
	if sandbox == nil || goja.IsUndefined(sandbox) {
		return
	}
	obj := sandbox.ToObject(c.vm)
	dispatch, ok := goja.AssertFunction(obj.Get("dispatchError"))
	if !ok {
		return
	}
	if _, derr := dispatch(obj, c.vm.ToValue(message), c.vm.ToValue(line), c.vm.ToValue(column)); derr != nil {
		c.logger.Debug("error dispatch failed", zap.Error(derr))
	}
}

// postError sends an error frame directly from Go, bypassing the VM.
func (c *Context) postError(message string) {
	if c.discarded() {
		return
	}
	frame, err := sonic.Marshal(wireFrame{Kind: string(KindError), Message: &message})
	if err != nil {
		return
	}
	c.channel.Post(frame)
}

func (c *Context) interrupted(err error) bool {
	var ie *goja.InterruptedError
	return errors.As(err, &ie) || c.discarded()
}

// describe extracts the thrown message and the innermost known source
// position from a goja error.
func describe(err error) (message string, line, column int) {
	var exc *goja.Exception
	if !errors.As(err, &exc) {
		return err.Error(), 0, 0
	}

	message = exc.Error()
	if val := exc.Value(); val != nil {
		if obj, ok := val.(*goja.Object); ok {
			if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
				message = m.String()
			}
		} else {
			message = val.String()
		}
	}

	for _, frame := range exc.Stack() {
		if pos := frame.Position(); pos.Line > 0 {
			return message, pos.Line, pos.Column
		}
	}
	return message, 0, 0
}
