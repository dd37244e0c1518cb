package sandbox

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

//go:embed runtime/bootstrap.js
var bootstrapJS string

//go:embed runtime/shim.js
var shimJS string

// lineTerminators are legal in JSON strings but not in older JS parsers.
var lineTerminators = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`)

// Render assembles the program injected into a fresh context:
// runtime bootstrap, then the instrumentation shim, then the sketch
// source as a string literal evaluated inside the shim's boundary.
func Render(code string) (string, error) {
	literal, err := sonic.Marshal(code)
	if err != nil {
		return "", fmt.Errorf("failed to encode sketch source: %w", err)
	}

	var b strings.Builder
	b.Grow(len(bootstrapJS) + len(shimJS) + len(literal) + 64)
	b.WriteString(bootstrapJS)
	b.WriteString("\n")
	b.WriteString(shimJS)
	b.WriteString("\n__sandbox.evaluate(")
	b.WriteString(lineTerminators.Replace(string(literal)))
	b.WriteString(");\n")
	return b.String(), nil
}
