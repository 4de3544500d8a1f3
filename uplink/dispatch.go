package uplink

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// Dispatch applies a decoded instruction batch strictly in array order.
// 'call' entries are buffered and run strictly after the full batch, in
// original order. Unrecognized tags are ignored for forward compatibility.
func (self *Runtime) Dispatch(instructions []*Instruction) {
	tailcalls := []*Instruction{}

	for _, in := range instructions {
		glog.V(2).Infof("[i]%s %s\n", in.Id, in.Type)
		switch in.Type {
		case InstructionTypeGet:
			self.Get(in.Id, in.Url)
		case InstructionTypePost:
			self.Post(in.Id, in.Url, in.Form, nil)
		case InstructionTypeInterval:
			self.Interval(in.Id, in.Interval)
		case InstructionTypeUpdate:
			self.Update(in.Id)
		case InstructionTypeStop:
			self.Stop(in.Id)
		case InstructionTypeUnset:
			self.Unset(in.Id)
		case InstructionTypeAbort:
			self.Abort(in.Id)
		case InstructionTypeLog:
			self.applyLog(in)
		case InstructionTypeOutput:
			self.applyOutput(in.Id, in.Target, strContent(in.Content))
		case InstructionTypeAttribute:
			self.applyAttribute(in.Id, in.Target, in.Name, in.Content)
		case InstructionTypeClose:
			self.applyClose(in.Id, in.Target)
		case InstructionTypeCallbackAdd:
			self.CallbackAdd(in.Id, in.Point, in.Func, in.Args...)
		case InstructionTypeCallbackRemove:
			self.CallbackRemove(in.Id, in.Point, in.Func)
		case InstructionTypeCallbackClear:
			self.CallbackClear(in.Id)
		case InstructionTypeCall:
			// tailcall, not run inline
			tailcalls = append(tailcalls, in)
		case InstructionTypeDataset:
			self.store.Set(in.Key, in.Value)
		case InstructionTypeNop:
			// explicit no-op
		default:
			glog.V(2).Infof("[i]%s unrecognized type %s\n", in.Id, in.Type)
		}
	}

	for _, in := range tailcalls {
		self.call(in.Func, in.Args...)
	}
}

func (self *Runtime) applyLog(in *Instruction) {
	if in.Args != nil {
		parts := []string{}
		for _, arg := range in.Args {
			parts = append(parts, fmt.Sprintf("%v", arg))
		}
		glog.Infof("[i]%s log %s\n", in.Id, strings.Join(parts, " "))
		return
	}
	glog.Infof("[i]%s log %s\n", in.Id, in.Text)
}
