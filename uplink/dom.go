package uplink

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

// Document is the live tree the patch handlers mutate. The tree itself is an
// external collaborator; the engine only needs id lookup and this narrow
// element surface.
type Document interface {
	ElementById(id string) (Element, bool)
}

type Element interface {
	Content() string
	SetContent(content string)
	ScrollOffset() (x int, y int)
	SetScrollOffset(x int, y int)
	SetAttribute(name string, value string)
	RemoveAttribute(name string)
	// SetValue sets the value property and synchronously dispatches the
	// document's change notification (select-element semantics).
	SetValue(value string)
	// SetChecked sets the checked state and synchronously dispatches the
	// document's change notification.
	SetChecked(checked bool)
	IsCheckbox() bool
	Hide()
}

// applyOutput replaces the content of the target element. A missing target
// gets one bounded retry, since the element may have been materialized by an
// earlier instruction in the same batch. Still missing after the retry is
// surfaced to the user.
func (self *Runtime) applyOutput(id string, target string, content string) {
	element, ok := self.doc.ElementById(target)
	if !ok {
		time.AfterFunc(self.settings.OutputRetryTimeout, func() {
			element, ok := self.doc.ElementById(target)
			if !ok {
				glog.Infof("[dom]%s output target %s missing\n", id, target)
				self.alert(fmt.Sprintf("missing output target %q", target))
				return
			}
			self.swapContent(id, element, content)
		})
		return
	}
	self.swapContent(id, element, content)
}

// only swap if the rendered content actually differs, preserving scroll
// offsets across the swap. 'inner' fires only when a swap occurred.
func (self *Runtime) swapContent(id string, element Element, content string) {
	if element.Content() == content {
		glog.V(2).Infof("[dom]%s output unchanged\n", id)
		return
	}
	x, y := element.ScrollOffset()
	element.SetContent(content)
	element.SetScrollOffset(x, y)
	self.Invoke(id, PointInner)
}

// applyAttribute sets, removes, or toggles an attribute on the target
// element. A missing target is logged and skipped without an alert.
func (self *Runtime) applyAttribute(id string, target string, name string, content *string) {
	element, ok := self.doc.ElementById(target)
	if !ok {
		glog.Infof("[dom]%s attribute target %s missing\n", id, target)
		return
	}

	switch {
	case name == "value":
		element.SetValue(strContent(content))
	case name == "checked" && element.IsCheckbox():
		element.SetChecked(boolContent(content))
	case content != nil:
		element.SetAttribute(name, *content)
	default:
		element.RemoveAttribute(name)
	}
}

// applyClose hides the target element and clears its content.
func (self *Runtime) applyClose(id string, target string) {
	element, ok := self.doc.ElementById(target)
	if !ok {
		glog.Infof("[dom]%s close target %s missing\n", id, target)
		return
	}
	element.Hide()
	element.SetContent("")
}
