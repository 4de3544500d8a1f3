package queue

import (
	"net/http"

	"github.com/golang/glog"
)

// ResponseWriter pairs a Queue with an http response. Plain text written
// through it before the queue flushes becomes the diagnostic prefix of the
// reply, and the separator byte is emitted only in that case.
type ResponseWriter struct {
	http.ResponseWriter
	queue     *Queue
	wroteText bool
	finalized bool
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		queue:          New(),
	}
}

func (self *ResponseWriter) Queue() *Queue {
	return self.queue
}

func (self *ResponseWriter) Write(p []byte) (int, error) {
	if 0 < len(p) {
		self.wroteText = true
	}
	return self.ResponseWriter.Write(p)
}

// Finalize flushes the queue into the response exactly once. Hook this into
// end of request.
func (self *ResponseWriter) Finalize() error {
	if self.finalized {
		return nil
	}
	self.finalized = true
	return self.queue.Flush(self.ResponseWriter, self.wroteText)
}

type HandlerFunction func(w http.ResponseWriter, r *http.Request, q *Queue)

// Handler adapts handle into an http.Handler that finalizes the queue after
// the handler returns.
func Handler(handle HandlerFunction) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		qw := NewResponseWriter(w)
		handle(qw, r, qw.Queue())
		if err := qw.Finalize(); err != nil {
			glog.Infof("[q]finalize error = %s\n", err)
		}
	})
}
