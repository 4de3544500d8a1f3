package uplink

import (
	"sync"

	"github.com/golang/glog"
)

type CallbackFunction func(args ...any)

// CallbackTable is the process-wide name to function table. Servers address
// client-side functions symbolically by these names, so the table is an
// explicit registry rather than compile-time function references.
type CallbackTable struct {
	mutex     sync.Mutex
	functions map[string]CallbackFunction
}

func NewCallbackTable() *CallbackTable {
	return &CallbackTable{
		functions: map[string]CallbackFunction{},
	}
}

func (self *CallbackTable) Register(name string, callback CallbackFunction) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.functions[name] = callback
}

func (self *CallbackTable) Unregister(name string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	delete(self.functions, name)
}

func (self *CallbackTable) Resolve(name string) CallbackFunction {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.functions[name]
}

func (self *CallbackTable) Has(name string) bool {
	return self.Resolve(name) != nil
}

// one binding of a lifecycle point to a named function.
// bound args are prefixed before any args supplied at invocation time.
type callbackBinding struct {
	funcName string
	args     []any
}

// Register adds callback to the runtime's function table.
func (self *Runtime) Register(name string, callback CallbackFunction) {
	self.callbacks.Register(name, callback)
}

// CallbackAdd binds funcName to the (id, point) lifecycle point.
// Duplicates are permitted and insertion order is preserved.
// An unknown funcName is logged and dropped.
func (self *Runtime) CallbackAdd(id string, point string, funcName string, args ...any) {
	if !self.callbacks.Has(funcName) {
		glog.Infof("[cb]%s add %s unknown function %s\n", id, point, funcName)
		return
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	conn := self.ensureLocked(id, true)
	conn.bindings[point] = append(conn.bindings[point], &callbackBinding{
		funcName: funcName,
		args:     args,
	})
}

// CallbackRemove removes the first binding at (id, point) matching funcName.
func (self *Runtime) CallbackRemove(id string, point string, funcName string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	conn := self.ensureLocked(id, false)
	if conn == nil {
		return
	}
	bindings := conn.bindings[point]
	for i, binding := range bindings {
		if binding.funcName == funcName {
			conn.bindings[point] = append(bindings[0:i:i], bindings[i+1:]...)
			return
		}
	}
}

// CallbackClear resets the entire binding map for id.
func (self *Runtime) CallbackClear(id string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	conn := self.ensureLocked(id, false)
	if conn == nil {
		return
	}
	conn.bindings = map[string][]*callbackBinding{}
}

// Invoke runs each binding at (id, point) in registration order. The
// binding's own args prefix extraArgs. Names resolve against the current
// table on every invocation, so late registration is honored.
func (self *Runtime) Invoke(id string, point string, extraArgs ...any) {
	self.mutex.Lock()
	var bindings []*callbackBinding
	if conn := self.ensureLocked(id, false); conn != nil {
		bindings = append(bindings, conn.bindings[point]...)
	}
	self.mutex.Unlock()

	for _, binding := range bindings {
		callback := self.callbacks.Resolve(binding.funcName)
		if callback == nil {
			glog.Infof("[cb]%s %s unknown function %s\n", id, point, binding.funcName)
			continue
		}
		callback(append(append([]any{}, binding.args...), extraArgs...)...)
	}
}

// call runs one tailcall through the same invocation path as bindings.
func (self *Runtime) call(funcName string, args ...any) {
	callback := self.callbacks.Resolve(funcName)
	if callback == nil {
		glog.Infof("[cb]call unknown function %s\n", funcName)
		return
	}
	callback(args...)
}
