package printer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
)

func TestFatalError_FieldErrors(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	var b criterio.FieldErrorsBuilder
	b = b.Append("store.driver", errors.New("unknown driver"))
	p.FatalError(fmt.Errorf("load config: %w", b.ToError()))

	out := buf.String()
	assert.Contains(t, out, "Validation Error")
	assert.Contains(t, out, "load config")
	assert.Contains(t, out, "store.driver: ")
	assert.Contains(t, out, "unknown driver")
}

func TestFatalError_Plain(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).FatalError(errors.New("boom"))

	assert.Contains(t, buf.String(), "╭ Error")
	assert.Contains(t, buf.String(), "boom")
}

func TestNotice(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Notice("Not posted", "first\nsecond")

	out := buf.String()
	assert.Contains(t, out, "Not posted")
	assert.Contains(t, out, "│"+ColorReset+" first")
	assert.Contains(t, out, "│"+ColorReset+" second")
}
