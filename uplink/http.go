package uplink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"strings"

	"github.com/golang/glog"
)

type requestSpec struct {
	url      string
	form     *Form
	progress ProgressFunction
	// poll requests reschedule the connection once they complete
	poll bool
}

// requestUrl prepends the runtime url prefix and appends the cache-busting
// query parameter.
func (self *Runtime) requestUrl(url string) string {
	self.mutex.Lock()
	full := self.urlPrefix + url
	self.mutex.Unlock()

	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	// random 6-7 digit integer
	return fmt.Sprintf("%s%snc=%d", full, sep, 100000+mathrand.Intn(9900000))
}

// request issues the http call for id. The new request supersedes any prior
// in-flight request on the same id in place: the prior call is not canceled
// and not queued, and if its stale response still arrives it is still
// decoded and dispatched. There is deliberately no request-generation guard.
func (self *Runtime) request(id string, spec *requestSpec) {
	requestCtx, requestCancel := context.WithCancel(self.ctx)

	self.mutex.Lock()
	conn := self.ensureLocked(id, true)
	conn.cancel = requestCancel
	self.mutex.Unlock()

	go func() {
		defer requestCancel()

		self.send(requestCtx, id, spec)

		// interval only reschedules after a poll request completes,
		// and never after the connection was stopped mid flight
		if spec.poll && requestCtx.Err() == nil {
			self.Delay(id)
		}
	}()
}

func (self *Runtime) send(ctx context.Context, id string, spec *requestSpec) {
	url := self.requestUrl(spec.url)

	var req *http.Request
	var err error
	if spec.form != nil {
		contentType, body, encodeErr := spec.form.Encode()
		if encodeErr != nil {
			glog.Infof("[h]%s.%s form encode error = %s\n", self.instanceId, id, encodeErr)
			return
		}
		var reader io.Reader = bytes.NewReader(body)
		if spec.progress != nil {
			reader = newProgressReader(reader, int64(len(body)), spec.progress)
		}
		req, err = http.NewRequestWithContext(ctx, "POST", url, reader)
		if err == nil {
			req.Header.Add("Content-Type", contentType)
			req.ContentLength = int64(len(body))
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, "GET", url, nil)
	}
	if err != nil {
		glog.Infof("[h]%s.%s request error = %s\n", self.instanceId, id, err)
		return
	}

	client := self.settings.ClientFunc()
	r, err := client.Do(req)
	if err != nil {
		// transport errors and cancellations end the cycle locally
		glog.Infof("[h]%s.%s transport error = %s\n", self.instanceId, id, err)
		return
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		glog.Infof("[h]%s.%s read error = %s\n", self.instanceId, id, err)
		return
	}

	if 200 <= r.StatusCode && r.StatusCode < 300 {
		glog.V(2).Infof("[h]%s.%s<- %d %dB\n", self.instanceId, id, r.StatusCode, len(body))
		self.Invoke(id, PointReply)
		self.handleReply(id, body)
		return
	}

	if point, ok := self.settings.StatusPoints[r.StatusCode]; ok {
		self.Invoke(id, point)
		return
	}

	// all other non-success statuses are swallowed
	glog.V(2).Infof("[h]%s.%s<- ignored status %d\n", self.instanceId, id, r.StatusCode)
}

// handleReply decodes a raw reply body and dispatches the batch. Diagnostic
// text ahead of the separator is logged and never fatal. A malformed batch
// raises one user-visible alert and is dropped whole, with no partial
// application and no retry.
func (self *Runtime) handleReply(id string, body []byte) {
	diagnostic, instructions, err := DecodeReply(body)
	if diagnostic != "" {
		glog.Infof("[d]%s ignored content = %s\n", id, diagnostic)
	}
	if err != nil {
		glog.Infof("[d]%s reply parse error = %s content = %s\n", id, err, string(body))
		self.alert(fmt.Sprintf("reply parse error: %s", err))
		return
	}
	self.Dispatch(instructions)
}
