package queue

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/ufolab/uplink/uplink"
)

func TestQueueFlush(t *testing.T) {
	q := New().
		Dataset("k", 1).
		Output("box", "hello").
		Call("f", "arg")

	buf := &bytes.Buffer{}
	assert.Equal(t, q.Flush(buf, false), nil)

	diagnostic, instructions, err := uplink.DecodeReply(buf.Bytes())
	assert.Equal(t, err, nil)
	assert.Equal(t, diagnostic, "")
	assert.Equal(t, len(instructions), 3)
	assert.Equal(t, instructions[0].Type, uplink.InstructionTypeDataset)
	assert.Equal(t, instructions[1].Target, "box")
	assert.Equal(t, *instructions[1].Content, "hello")
	assert.Equal(t, instructions[2].Func, "f")

	// exactly once per response
	assert.NotEqual(t, q.Flush(buf, false), nil)
}

func TestQueueFlushEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	assert.Equal(t, New().Flush(buf, false), nil)
	assert.Equal(t, buf.String(), "[]")
}

func TestQueueSeparatorOnlyWithDiagnostic(t *testing.T) {
	buf := &bytes.Buffer{}
	fmt.Fprint(buf, "deprecated endpoint")
	assert.Equal(t, New().Nop().Flush(buf, true), nil)

	diagnostic, instructions, err := uplink.DecodeReply(buf.Bytes())
	assert.Equal(t, err, nil)
	assert.Equal(t, diagnostic, "deprecated endpoint")
	assert.Equal(t, len(instructions), 1)
}

func TestResponseWriter(t *testing.T) {
	recorder := httptest.NewRecorder()
	qw := NewResponseWriter(recorder)

	fmt.Fprint(qw, "WARN:bad")
	qw.Queue().Nop()

	assert.Equal(t, qw.Finalize(), nil)
	// finalize is idempotent
	assert.Equal(t, qw.Finalize(), nil)

	diagnostic, instructions, err := uplink.DecodeReply(recorder.Body.Bytes())
	assert.Equal(t, err, nil)
	assert.Equal(t, diagnostic, "WARN:bad")
	assert.Equal(t, len(instructions), 1)
}

// full producer to engine round trip over http
func TestHandlerRoundTrip(t *testing.T) {
	server := httptest.NewServer(Handler(func(w http.ResponseWriter, r *http.Request, q *Queue) {
		q.Dataset("k", 3).
			Dataset("ln", map[string]any{"hello": "hallo"}).
			Call("done")
	}))
	defer server.Close()

	settings := uplink.DefaultRuntimeSettings()
	done := make(chan struct{})
	runtime := uplink.NewRuntime(context.Background(), nopDocument{}, settings)
	defer runtime.Close()

	runtime.Register("done", func(args ...any) {
		close(done)
	})

	runtime.Get("c", server.URL)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
	assert.Equal(t, runtime.Data().Get("k"), float64(3))
	assert.Equal(t, runtime.Data().Ln("hello"), "hallo")
}

type nopDocument struct{}

func (nopDocument) ElementById(id string) (uplink.Element, bool) {
	return nil, false
}
