// Package queue is the server-side producer for the uplink wire format. A
// handler accumulates instructions in intended application order and the
// queue serializes them as exactly one JSON array per response, prefixed by
// the separator byte only when diagnostic text was already written.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ufolab/uplink/uplink"
)

type Queue struct {
	instructions []*uplink.Instruction
	flushed      bool
}

func New() *Queue {
	return &Queue{}
}

func (self *Queue) Add(in *uplink.Instruction) *Queue {
	self.instructions = append(self.instructions, in)
	return self
}

func (self *Queue) Len() int {
	return len(self.instructions)
}

func (self *Queue) Get(id string, url string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeGet, Id: id, Url: url})
}

func (self *Queue) Post(id string, url string, form map[string]any) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypePost, Id: id, Url: url, Form: form})
}

func (self *Queue) Interval(id string, seconds float64) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeInterval, Id: id, Interval: seconds})
}

func (self *Queue) Update(id string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeUpdate, Id: id})
}

func (self *Queue) Stop(id string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeStop, Id: id})
}

func (self *Queue) Unset(id string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeUnset, Id: id})
}

func (self *Queue) Abort(id string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeAbort, Id: id})
}

func (self *Queue) Log(text string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeLog, Text: text})
}

func (self *Queue) Output(target string, content string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeOutput, Target: target, Content: &content})
}

func (self *Queue) Attribute(target string, name string, content string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeAttribute, Target: target, Name: name, Content: &content})
}

// RemoveAttribute emits an attribute instruction with null content, which
// removes the attribute on the client.
func (self *Queue) RemoveAttribute(target string, name string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeAttribute, Target: target, Name: name})
}

func (self *Queue) Close(target string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeClose, Target: target})
}

func (self *Queue) CallbackAdd(id string, point string, funcName string, args ...any) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeCallbackAdd, Id: id, Point: point, Func: funcName, Args: args})
}

func (self *Queue) CallbackRemove(id string, point string, funcName string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeCallbackRemove, Id: id, Point: point, Func: funcName})
}

func (self *Queue) CallbackClear(id string) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeCallbackClear, Id: id})
}

func (self *Queue) Call(funcName string, args ...any) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeCall, Func: funcName, Args: args})
}

func (self *Queue) Dataset(key string, value any) *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeDataset, Key: key, Value: value})
}

func (self *Queue) Nop() *Queue {
	return self.Add(&uplink.Instruction{Type: uplink.InstructionTypeNop})
}

// Flush serializes the full queue as one JSON array. With diagnosticWritten
// the separator byte precedes the array so the client can split off the
// diagnostic text. A queue flushes exactly once.
func (self *Queue) Flush(w io.Writer, diagnosticWritten bool) error {
	if self.flushed {
		return errors.New("queue already flushed")
	}
	self.flushed = true

	if diagnosticWritten {
		if _, err := w.Write([]byte{uplink.ReplySeparator}); err != nil {
			return err
		}
	}

	instructions := self.instructions
	if instructions == nil {
		instructions = []*uplink.Instruction{}
	}
	data, err := json.Marshal(instructions)
	if err != nil {
		return fmt.Errorf("queue serialize: %w", err)
	}
	_, err = w.Write(data)
	return err
}
