package uplink

import (
	"bytes"
	"encoding/json"
)

// separates optional diagnostic text from the instruction array in a reply body
const ReplySeparator = byte(0x02)

// DecodeReply splits a raw reply body into the diagnostic prefix and the
// instruction batch. Text before the separator byte is never fatal; a body
// without a separator is parsed whole.
func DecodeReply(body []byte) (diagnostic string, instructions []*Instruction, err error) {
	data := body
	if i := bytes.IndexByte(body, ReplySeparator); 0 <= i {
		diagnostic = string(body[0:i])
		data = body[i+1:]
	}
	err = json.Unmarshal(data, &instructions)
	if err != nil {
		instructions = nil
	}
	return
}
