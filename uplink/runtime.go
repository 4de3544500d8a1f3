package uplink

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
func defaultClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type RuntimeSettings struct {
	// retry window for output targets materialized later in the same batch
	OutputRetryTimeout time.Duration
	// poll jitter factor is drawn uniformly from [PollJitterMin, PollJitterMax)
	PollJitterMin float64
	PollJitterMax float64
	// non-success statuses that fire a callback point instead of decoding.
	// all other non-success statuses are ignored.
	StatusPoints map[int]string
	// surfaces parse failures and missing output targets to the user
	Alert AlertFunction
	// the http client used for every request
	ClientFunc func() *http.Client
}

func DefaultRuntimeSettings() *RuntimeSettings {
	return &RuntimeSettings{
		OutputRetryTimeout: 100 * time.Millisecond,
		PollJitterMin:      0.5,
		PollJitterMax:      1.25,
		StatusPoints: map[int]string{
			http.StatusForbidden: PointForbidden,
		},
		Alert:      defaultAlert,
		ClientFunc: defaultClient,
	}
}

// Runtime owns every process-wide registry of the engine: the connection
// registry, the callback function table, and the data store. Holding them on
// one explicit context enables multiple independent instances and
// deterministic tests.
//
// All handlers effectively run to completion before the next queued event
// executes; the runtime mutex serializes the shared state between the
// request-completion goroutines and timers.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc

	instanceId Id

	doc      Document
	alert    AlertFunction
	settings *RuntimeSettings

	callbacks *CallbackTable
	store     *Store

	mutex       sync.Mutex
	urlPrefix   string
	connections map[string]*connection
}

func NewRuntimeWithDefaults(ctx context.Context, doc Document) *Runtime {
	return NewRuntime(ctx, doc, DefaultRuntimeSettings())
}

func NewRuntime(ctx context.Context, doc Document, settings *RuntimeSettings) *Runtime {
	cancelCtx, cancel := context.WithCancel(ctx)

	alert := settings.Alert
	if alert == nil {
		alert = defaultAlert
	}
	if settings.ClientFunc == nil {
		settings.ClientFunc = defaultClient
	}

	instanceId := NewId()
	glog.V(2).Infof("[rt]%s create\n", instanceId)

	return &Runtime{
		ctx:         cancelCtx,
		cancel:      cancel,
		instanceId:  instanceId,
		doc:         doc,
		alert:       alert,
		settings:    settings,
		callbacks:   NewCallbackTable(),
		store:       NewStore(),
		connections: map[string]*connection{},
	}
}

func (self *Runtime) InstanceId() Id {
	return self.instanceId
}

func (self *Runtime) Callbacks() *CallbackTable {
	return self.callbacks
}

func (self *Runtime) Data() *Store {
	return self.store
}

// SetUrlPrefix prepends prefix to every outgoing request url.
func (self *Runtime) SetUrlPrefix(prefix string) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.urlPrefix = prefix
}

func (self *Runtime) Close() {
	self.cancel()
}
