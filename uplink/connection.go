package uplink

import (
	"context"
	mathrand "math/rand"
	"time"

	"github.com/golang/glog"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// one logical connection. Owns at most one in-flight request at a time; a
// new Get/Post on the same id supersedes the prior request in place without
// canceling it. Created lazily and destroyed only by explicit removal.
type connection struct {
	id       string
	url      string
	interval float64
	timer    *time.Timer
	// cancel of the current in-flight request
	cancel   context.CancelFunc
	bindings map[string][]*callbackBinding
}

func newConnection(id string) *connection {
	return &connection{
		id:       id,
		bindings: map[string][]*callbackBinding{},
	}
}

// must be called with `mutex`. With create false, cleanup-style calls do not
// materialize dead entries.
func (self *Runtime) ensureLocked(id string, create bool) *connection {
	conn, ok := self.connections[id]
	if !ok {
		if !create {
			return nil
		}
		conn = newConnection(id)
		self.connections[id] = conn
	}
	return conn
}

// List returns the known connection ids in stable order.
func (self *Runtime) List() []string {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	ids := maps.Keys(self.connections)
	slices.Sort(ids)
	return ids
}

// Url returns the target url currently set for id, or "".
func (self *Runtime) Url(id string) string {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	conn := self.ensureLocked(id, false)
	if conn == nil {
		return ""
	}
	return conn.url
}

// Get sets the target url for id and runs an update cycle.
func (self *Runtime) Get(id string, url string) {
	self.mutex.Lock()
	conn := self.ensureLocked(id, true)
	conn.url = url
	self.mutex.Unlock()

	self.Invoke(id, PointGet)
	self.Update(id)
}

// Update issues a GET against the connection's url. A connection without a
// url is a diagnostic, not an error. The next poll is scheduled once the
// request completes.
func (self *Runtime) Update(id string) {
	self.Invoke(id, PointUpdate)

	self.mutex.Lock()
	conn := self.ensureLocked(id, true)
	url := conn.url
	self.mutex.Unlock()

	if url == "" {
		glog.Infof("[c]%s update without url\n", id)
		return
	}

	self.request(id, &requestSpec{url: url, poll: true})
}

// Post sends payload to url as a multipart form. Zero-size file fields are
// stripped, a workaround for inconsistent browser form encodings. The 'post'
// point fires with the original payload reference as a bound argument.
func (self *Runtime) Post(id string, url string, payload any, progress ProgressFunction) {
	self.mutex.Lock()
	conn := self.ensureLocked(id, true)
	conn.url = url
	self.mutex.Unlock()

	form := NormalizeForm(payload)
	form.StripEmptyFiles()

	self.Invoke(id, PointPost, payload)

	self.request(id, &requestSpec{url: url, form: form, progress: progress})
}

// Interval sets or clears the polling cadence in seconds. Setting a cadence
// pre-registers the connection before any Get; clearing one is a no-op when
// no connection exists, and cancels a pending poll otherwise.
func (self *Runtime) Interval(id string, seconds float64) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if seconds != 0 {
		conn := self.ensureLocked(id, true)
		conn.interval = seconds
		return
	}

	conn := self.ensureLocked(id, false)
	if conn == nil {
		return
	}
	conn.interval = 0
	if conn.timer != nil {
		conn.timer.Stop()
		conn.timer = nil
	}
}

// Delay schedules the next update after interval scaled by a jitter factor
// from [PollJitterMin, PollJitterMax), replacing any pending timer. Jitter
// avoids synchronized request bursts across clients.
func (self *Runtime) Delay(id string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	conn := self.ensureLocked(id, false)
	if conn == nil || conn.interval <= 0 {
		return
	}

	factor := self.settings.PollJitterMin + mathrand.Float64()*(self.settings.PollJitterMax-self.settings.PollJitterMin)
	timeout := time.Duration(conn.interval * factor * float64(time.Second))

	if conn.timer != nil {
		conn.timer.Stop()
	}
	conn.timer = time.AfterFunc(timeout, func() {
		self.Update(id)
	})
	glog.V(2).Infof("[c]%s next poll in %s\n", id, timeout)
}

// Stop clears the pending timer and cancels the in-flight request for id.
func (self *Runtime) Stop(id string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.stopLocked(id)
}

func (self *Runtime) stopLocked(id string) {
	conn := self.ensureLocked(id, false)
	if conn == nil {
		return
	}
	if conn.timer != nil {
		conn.timer.Stop()
		conn.timer = nil
	}
	if conn.cancel != nil {
		conn.cancel()
		conn.cancel = nil
	}
}

// Unset stops id and deletes it from the registry. Any later operation on
// id behaves as if it never existed.
func (self *Runtime) Unset(id string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	self.stopLocked(id)
	delete(self.connections, id)
}

// Abort fires the 'abort' point, then cancels the in-flight request only.
// The pending timer is untouched. Cancellation is best effort: a response
// already delivered by the transport is still processed.
func (self *Runtime) Abort(id string) {
	self.Invoke(id, PointAbort)

	self.mutex.Lock()
	defer self.mutex.Unlock()

	conn := self.ensureLocked(id, false)
	if conn == nil {
		return
	}
	if conn.cancel != nil {
		conn.cancel()
		conn.cancel = nil
	}
}
