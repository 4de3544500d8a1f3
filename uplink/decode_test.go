package uplink

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestDecodeReplyBare(t *testing.T) {
	diagnostic, instructions, err := DecodeReply([]byte(`[{"type":"nop"},{"type":"dataset","key":"k","value":1}]`))
	assert.Equal(t, err, nil)
	assert.Equal(t, diagnostic, "")
	assert.Equal(t, len(instructions), 2)
	assert.Equal(t, instructions[0].Type, InstructionTypeNop)
	assert.Equal(t, instructions[1].Key, "k")
}

func TestDecodeReplyDiagnostic(t *testing.T) {
	diagnostic, instructions, err := DecodeReply([]byte("WARN:bad\x02[{\"type\":\"nop\"}]"))
	assert.Equal(t, err, nil)
	assert.Equal(t, diagnostic, "WARN:bad")
	assert.Equal(t, len(instructions), 1)
	assert.Equal(t, instructions[0].Type, InstructionTypeNop)
}

func TestDecodeReplyMalformed(t *testing.T) {
	_, instructions, err := DecodeReply([]byte(`{not json`))
	assert.NotEqual(t, err, nil)
	assert.Equal(t, len(instructions), 0)
}

func TestDecodeReplyDiagnosticMalformed(t *testing.T) {
	diagnostic, instructions, err := DecodeReply([]byte("note\x02{not json"))
	assert.NotEqual(t, err, nil)
	assert.Equal(t, diagnostic, "note")
	assert.Equal(t, len(instructions), 0)
}

func TestDecodeReplyFields(t *testing.T) {
	body := []byte(`[{"type":"attribute","target":"a","name":"class","content":"big"},` +
		`{"type":"attribute","target":"a","name":"class"}]`)
	_, instructions, err := DecodeReply(body)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(instructions), 2)
	// content null versus populated survives decoding
	assert.NotEqual(t, instructions[0].Content, nil)
	assert.Equal(t, *instructions[0].Content, "big")
	assert.Equal(t, instructions[1].Content, nil)
}

func TestHandleReplyMalformedAlertsOnce(t *testing.T) {
	runtime, alerts := newTestRuntime(newMemDocument())
	defer runtime.Close()

	runtime.handleReply("c", []byte(`{not json`))
	assert.Equal(t, alerts.count(), 1)
	assert.Equal(t, runtime.Data().Get("k"), nil)
}

func TestHandleReplyDiagnosticApplies(t *testing.T) {
	runtime, alerts := newTestRuntime(newMemDocument())
	defer runtime.Close()

	runtime.handleReply("c", []byte("WARN:bad\x02[{\"type\":\"nop\"},{\"type\":\"dataset\",\"key\":\"k\",\"value\":7}]"))
	assert.Equal(t, alerts.count(), 0)
	assert.Equal(t, runtime.Data().Get("k"), float64(7))
}
