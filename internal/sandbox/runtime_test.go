package sandbox

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameRate = 500
	return cfg
}

func startContext(t *testing.T, code string, cfg Config) (*Context, chan Envelope) {
	t.Helper()

	inbox := make(chan Envelope, 64)
	ctx, err := newContext(1, cfg, inbox, zap.NewNop())
	require.NoError(t, err)

	program, err := Render(code)
	require.NoError(t, err)

	ctx.start(program)
	t.Cleanup(ctx.Discard)
	return ctx, inbox
}

func nextMessage(t *testing.T, inbox <-chan Envelope) Message {
	t.Helper()

	select {
	case env := <-inbox:
		msg, err := Decode(env.Frame)
		require.NoError(t, err, "frame %s", env.Frame)
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for context message")
		return Message{}
	}
}

func waitExited(t *testing.T, ctx *Context) {
	t.Helper()

	select {
	case <-ctx.Exited():
	case <-time.After(3 * time.Second):
		t.Fatal("context did not exit")
	}
}

func TestConsoleForwarding(t *testing.T) {
	_, inbox := startContext(t, `console.log("hello", 42)`, testConfig())

	msg := nextMessage(t, inbox)
	assert.Equal(t, KindConsole, msg.Kind)
	assert.Equal(t, "[log] hello 42", msg.OutputLine())
}

func TestConsoleMethodsInOrder(t *testing.T) {
	code := `
console.log("one");
console.warn("two", true);
console.error("three", null, undefined);
`
	_, inbox := startContext(t, code, testConfig())

	assert.Equal(t, "[log] one", nextMessage(t, inbox).OutputLine())
	assert.Equal(t, "[warn] two true", nextMessage(t, inbox).OutputLine())
	assert.Equal(t, "[error] three null undefined", nextMessage(t, inbox).OutputLine())
}

func TestSynchronousErrorIsReported(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "reference error", code: "let y = x + 1;", want: "x is not defined"},
		{name: "thrown error", code: `throw new Error("boom")`, want: "boom"},
		{name: "thrown string", code: `throw "plain"`, want: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, inbox := startContext(t, tt.code, testConfig())

			msg := nextMessage(t, inbox)
			assert.Equal(t, KindError, msg.Kind)
			assert.Equal(t, tt.want, msg.Text)
		})
	}
}

func TestOutputBeforeErrorKeepsOrder(t *testing.T) {
	_, inbox := startContext(t, `console.log("before"); missing();`, testConfig())

	assert.Equal(t, "[log] before", nextMessage(t, inbox).OutputLine())

	msg := nextMessage(t, inbox)
	assert.Equal(t, KindError, msg.Kind)
	assert.Equal(t, "missing is not defined", msg.Text)
}

func TestSetupAndDraw(t *testing.T) {
	code := `
function setup() {
  createCanvas(200, 100);
  console.log("setup", width, height);
}

function draw() {
  if (frameCount === 3) {
    console.log("frame", frameCount);
    noLoop();
  }
}
`
	ctx, inbox := startContext(t, code, testConfig())

	assert.Equal(t, "[log] setup 200 100", nextMessage(t, inbox).OutputLine())
	assert.Equal(t, "[log] frame 3", nextMessage(t, inbox).OutputLine())

	waitExited(t, ctx)
	assert.Equal(t, int64(3), ctx.Frames())
}

func TestUncaughtDrawErrorIsDispatched(t *testing.T) {
	code := `function draw() {
  missing();
}`
	ctx, inbox := startContext(t, code, testConfig())

	msg := nextMessage(t, inbox)
	assert.Equal(t, KindError, msg.Kind)
	assert.Equal(t, "missing is not defined", msg.Text)
	assert.Greater(t, msg.Line, 0)

	waitExited(t, ctx)
	assert.Equal(t, int64(0), ctx.Frames())
}

func TestUserErrorListener(t *testing.T) {
	code := `
window.addEventListener("error", function (e) { console.log("caught", e.message); });
function setup() { throw new Error("in setup"); }
`
	_, inbox := startContext(t, code, testConfig())

	// The shim's listener was registered first.
	first := nextMessage(t, inbox)
	assert.Equal(t, KindError, first.Kind)
	assert.Equal(t, "in setup", first.Text)
	assert.Equal(t, "[log] caught in setup", nextMessage(t, inbox).OutputLine())
}

func TestMaxFrames(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFrames = 4

	ctx, _ := startContext(t, `function draw() { circle(mouseX, mouseY, 10); }`, cfg)

	waitExited(t, ctx)
	assert.Equal(t, int64(4), ctx.Frames())
}

func TestDiscardInterruptsRunawayScript(t *testing.T) {
	ctx, _ := startContext(t, `while (true) {}`, testConfig())

	require.Eventually(t, func() bool {
		return ctx.Lifecycle() == Active
	}, time.Second, 5*time.Millisecond)

	ctx.Discard()
	waitExited(t, ctx)
	assert.Equal(t, Idle, ctx.Lifecycle())
}

func TestDiscardStopsPosting(t *testing.T) {
	ctx, inbox := startContext(t, `function draw() { console.log(frameCount); }`, testConfig())

	nextMessage(t, inbox)
	ctx.Discard()
	waitExited(t, ctx)

	assert.False(t, ctx.channel.Post([]byte(`{"kind":"console","method":"log","args":[]}`)))
}

func TestDangerousGlobalsRemoved(t *testing.T) {
	code := `console.log(typeof require, typeof process, typeof module, typeof setTimeout(function () {}, 10))`
	_, inbox := startContext(t, code, testConfig())

	assert.Equal(t, "[log] undefined undefined undefined undefined", nextMessage(t, inbox).OutputLine())
}

func TestRuntimeLibrary(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			name: "vector magnitude",
			code: `console.log(createVector(3, 4).mag())`,
			want: "[log] 5",
		},
		{
			name: "vector limit",
			code: `var v = createVector(6, 8); v.limit(5); console.log(v.x, v.y)`,
			want: "[log] 3 4",
		},
		{
			name: "map and constrain",
			code: `console.log(map(5, 0, 10, 0, 100), constrain(150, 0, 100))`,
			want: "[log] 50 100",
		},
		{
			name: "seeded random repeats",
			code: `randomSeed(42); var a = random(); randomSeed(42); console.log(a === random())`,
			want: "[log] true",
		},
		{
			name: "random range",
			code: `var ok = true; for (var i = 0; i < 100; i++) { var r = random(5, 10); ok = ok && r >= 5 && r < 10; } console.log(ok)`,
			want: "[log] true",
		},
		{
			name: "noise range",
			code: `var n = noise(0.5, 1.5); console.log(n >= 0 && n <= 1)`,
			want: "[log] true",
		},
		{
			name: "dist",
			code: `console.log(dist(0, 0, 3, 4))`,
			want: "[log] 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, inbox := startContext(t, tt.code, testConfig())
			assert.Equal(t, tt.want, nextMessage(t, inbox).OutputLine())
		})
	}
}

func TestRenderEmbedsSourceAsLiteral(t *testing.T) {
	code := "console.log(\"quote \\\" and\")\n// sep\u2028"
	program, err := Render(code)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(program, bootstrapJS))
	assert.Contains(t, program, shimJS)
	assert.Contains(t, program, `__sandbox.evaluate("console.log(\"quote \\\" and`)
	assert.NotContains(t, program, "\u2028")
	assert.Contains(t, program, `// sep\u2028");`)
}

func TestDescribe(t *testing.T) {
	msg, line, col := describe(errors.New("plain failure"))
	assert.Equal(t, "plain failure", msg)
	assert.Zero(t, line)
	assert.Zero(t, col)

	vm := goja.New()
	_, err := vm.RunScript("probe.js", "var a = 1;\nthrow new TypeError('bad input');")
	require.Error(t, err)

	msg, line, _ = describe(err)
	assert.Equal(t, "bad input", msg)
	assert.Equal(t, 2, line)
}

func TestFrameRateOutOfRangeKeepsDrawing(t *testing.T) {
	tests := []struct {
		name string
		rate string
	}{
		{name: "infinity", rate: "Infinity"},
		{name: "huge", rate: "1e12"},
		{name: "nan", rate: "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := `
function setup() { frameRate(` + tt.rate + `); }
function draw() {
  console.log("d" + frameCount);
  if (frameCount === 2) noLoop();
}`
			ctx, inbox := startContext(t, code, testConfig())

			assert.Equal(t, "[log] d1", nextMessage(t, inbox).OutputLine())
			assert.Equal(t, "[log] d2", nextMessage(t, inbox).OutputLine())
			waitExited(t, ctx)
			assert.Equal(t, int64(2), ctx.Frames())
		})
	}
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, Config{FrameRate: 100}.frameInterval())
	assert.Equal(t, time.Second/60, Config{}.frameInterval())
	assert.Equal(t, minFrameInterval, Config{FrameRate: 1e12}.frameInterval())
	assert.Equal(t, minFrameInterval, Config{FrameRate: math.Inf(1)}.frameInterval())
	assert.Equal(t, time.Second/60, Config{FrameRate: math.NaN()}.frameInterval())
}

func TestPostErrorReachesHost(t *testing.T) {
	inbox := make(chan Envelope, 1)
	ctx, err := newContext(3, testConfig(), inbox, zap.NewNop())
	require.NoError(t, err)

	ctx.postError("sketch runtime failed: boom")

	msg := nextMessage(t, inbox)
	assert.Equal(t, KindError, msg.Kind)
	assert.Equal(t, "sketch runtime failed: boom", msg.Text)

	ctx.Discard()
	ctx.postError("late")
	assert.Empty(t, inbox)
}
