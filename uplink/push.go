package uplink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/gorilla/websocket"
)

const pushSendBufferSize = 8

type PushChannelSettings struct {
	WsHandshakeTimeout time.Duration
	ReconnectTimeout   time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
}

func DefaultPushChannelSettings() *PushChannelSettings {
	return &PushChannelSettings{
		WsHandshakeTimeout: 2 * time.Second,
		ReconnectTimeout:   5 * time.Second,
		PingTimeout:        15 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        60 * time.Second,
	}
}

// wire message of the push endpoint. The server assigns a uid, signals
// ready once permissions are granted, and broadcasts channel messages; the
// client sends subscribe requests.
type pushMessage struct {
	Type        string   `json:"type"`
	Uid         string   `json:"uid,omitempty"`
	Channel     string   `json:"channel,omitempty"`
	Message     string   `json:"message,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

const (
	pushMessageTypeUid       = "uid"
	pushMessageTypeReady     = "ready"
	pushMessageTypeBroadcast = "broadcast"
	pushMessageTypeSubscribe = "subscribe"
)

// PushChannel is the optional websocket side channel. Broadcast payloads
// are fed through the same decode and dispatch path as polled replies, on
// the designated connection id, so pushed batches behave exactly like
// polled batches. Delivery is still best effort.
type PushChannel struct {
	ctx    context.Context
	cancel context.CancelFunc

	runtime      *Runtime
	connectionId string
	// the runtime instance id, used to tag every push log line
	clientId Id
	pushUrl  string
	channels []string

	settings *PushChannelSettings

	stateLock sync.Mutex
	uid       string
}

func NewPushChannelWithDefaults(
	runtime *Runtime,
	connectionId string,
	pushUrl string,
	channels []string,
) *PushChannel {
	return NewPushChannel(runtime, connectionId, pushUrl, channels, DefaultPushChannelSettings())
}

func NewPushChannel(
	runtime *Runtime,
	connectionId string,
	pushUrl string,
	channels []string,
	settings *PushChannelSettings,
) *PushChannel {
	cancelCtx, cancel := context.WithCancel(runtime.ctx)
	pushChannel := &PushChannel{
		ctx:          cancelCtx,
		cancel:       cancel,
		runtime:      runtime,
		connectionId: connectionId,
		clientId:     runtime.instanceId,
		pushUrl:      pushUrl,
		channels:     channels,
		settings:     settings,
	}
	go pushChannel.run()
	return pushChannel
}

// Uid returns the server-assigned client id for the current session, or "".
func (self *PushChannel) Uid() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.uid
}

func (self *PushChannel) run() {
	defer self.cancel()

	for {
		dialer := &websocket.Dialer{
			HandshakeTimeout: self.settings.WsHandshakeTimeout,
		}
		ws, _, err := dialer.DialContext(self.ctx, self.pushUrl, nil)
		if err != nil {
			glog.Infof("[p]%s connect error = %s\n", self.clientId, err)
			select {
			case <-self.ctx.Done():
				return
			case <-time.After(self.settings.ReconnectTimeout):
				continue
			}
		}

		self.handle(ws)

		select {
		case <-self.ctx.Done():
			return
		case <-time.After(self.settings.ReconnectTimeout):
		}
	}
}

func (self *PushChannel) handle(ws *websocket.Conn) {
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(self.ctx)
	defer handleCancel()

	send := make(chan *pushMessage, pushSendBufferSize)

	go func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			case message, ok := <-send:
				if !ok {
					return
				}
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteJSON(message); err != nil {
					// note that for websocket a deadline timeout cannot be recovered
					glog.Infof("[ps]%s-> error = %s\n", self.clientId, err)
					return
				}
				glog.V(2).Infof("[ps]%s-> %s\n", self.clientId, message.Type)
			case <-time.After(self.settings.PingTimeout):
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-handleCtx.Done():
			return
		default:
		}

		ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		_, data, err := ws.ReadMessage()
		if err != nil {
			glog.Infof("[pr]%s<- error = %s\n", self.clientId, err)
			return
		}

		var message pushMessage
		if err := json.Unmarshal(data, &message); err != nil {
			glog.Infof("[pr]%s<- parse error = %s\n", self.clientId, err)
			continue
		}

		switch message.Type {
		case pushMessageTypeUid:
			// the server assigns uuid-form session ids
			if sessionId, err := ParseId(message.Uid); err == nil {
				glog.V(2).Infof("[pr]%s<- session %s\n", self.clientId, sessionId)
			} else {
				glog.Infof("[pr]%s<- malformed session id %q\n", self.clientId, message.Uid)
			}
			self.stateLock.Lock()
			self.uid = message.Uid
			self.stateLock.Unlock()
			self.runtime.Data().Set("uid", message.Uid)
		case pushMessageTypeReady:
			for _, channel := range self.channels {
				select {
				case send <- &pushMessage{
					Type:    pushMessageTypeSubscribe,
					Channel: channel,
				}:
				case <-handleCtx.Done():
					return
				}
			}
			self.runtime.Invoke(self.connectionId, PointReady)
		case pushMessageTypeBroadcast:
			glog.V(2).Infof("[pr]%s<- broadcast %s\n", self.clientId, message.Channel)
			self.runtime.handleReply(self.connectionId, []byte(message.Message))
		default:
			glog.V(2).Infof("[pr]%s<- other type %s\n", self.clientId, message.Type)
		}
	}
}

func (self *PushChannel) Close() {
	self.cancel()
}
