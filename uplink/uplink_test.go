package uplink

import (
	"context"
	"flag"
	"sync"
	"testing"
	"time"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	endTime := time.Now().Add(timeout)
	for {
		if condition() {
			return
		}
		if endTime.Before(time.Now()) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// in-memory document with synchronous change notifications,
// deterministic enough to assert every patch
type memDocument struct {
	mutex    sync.Mutex
	elements map[string]*memElement
}

func newMemDocument() *memDocument {
	return &memDocument{
		elements: map[string]*memElement{},
	}
}

func (self *memDocument) Add(id string, content string) *memElement {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	element := &memElement{
		doc:        self,
		id:         id,
		content:    content,
		attributes: map[string]string{},
	}
	self.elements[id] = element
	return element
}

func (self *memDocument) ElementById(id string) (Element, bool) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	element, ok := self.elements[id]
	if !ok {
		return nil, false
	}
	return element, true
}

type memElement struct {
	doc *memDocument
	id  string

	content    string
	hidden     bool
	scrollX    int
	scrollY    int
	attributes map[string]string
	value      string
	checked    bool
	checkbox   bool

	swapCount   int
	changeCount int
}

func (self *memElement) Content() string {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	return self.content
}

func (self *memElement) SetContent(content string) {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	self.content = content
	self.swapCount += 1
}

func (self *memElement) ScrollOffset() (int, int) {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	return self.scrollX, self.scrollY
}

func (self *memElement) SetScrollOffset(x int, y int) {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	self.scrollX = x
	self.scrollY = y
}

func (self *memElement) SetAttribute(name string, value string) {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	self.attributes[name] = value
}

func (self *memElement) RemoveAttribute(name string) {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	delete(self.attributes, name)
}

func (self *memElement) SetValue(value string) {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	self.value = value
	self.changeCount += 1
}

func (self *memElement) SetChecked(checked bool) {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	self.checked = checked
	self.changeCount += 1
}

func (self *memElement) IsCheckbox() bool {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	return self.checkbox
}

func (self *memElement) Hide() {
	self.doc.mutex.Lock()
	defer self.doc.mutex.Unlock()
	self.hidden = true
}

// alert sink with a counter, for asserting exactly-once surfacing
type alertRecorder struct {
	mutex    sync.Mutex
	messages []string
}

func (self *alertRecorder) alert(message string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.messages = append(self.messages, message)
}

func (self *alertRecorder) count() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return len(self.messages)
}

func newTestRuntime(doc Document) (*Runtime, *alertRecorder) {
	alerts := &alertRecorder{}
	settings := DefaultRuntimeSettings()
	settings.OutputRetryTimeout = 20 * time.Millisecond
	settings.Alert = alerts.alert
	return NewRuntime(context.Background(), doc, settings), alerts
}

// event log shared between registered callbacks
type eventRecorder struct {
	mutex  sync.Mutex
	events []string
}

func (self *eventRecorder) record(event string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.events = append(self.events, event)
}

func (self *eventRecorder) snapshot() []string {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return append([]string{}, self.events...)
}
