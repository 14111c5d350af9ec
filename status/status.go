// Package status collects soft decode diagnostics. Warnings are non-fatal
// by contract: a template decode continues with degraded data after
// reporting one. Events go to the structured log and, when the inspection
// server is running, are pushed to websocket listeners.
package status

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	INFO = iota
	WARNING
	PROGRESS
)

type event struct {
	Message  string
	Time     time.Time
	Type     int
	Progress float32
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		unregisterClient(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logrus.WithError(err).Debug("status: ws write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithError(err).Debug("status: ws ping failed")
				return
			}
		}
	}
}

func NewClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, 32)}
	registerClient(c)
	go c.writePump()
	return c
}

var (
	globalLock    sync.Mutex
	broadcastList = make(map[*client]bool)
)

func registerClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	broadcastList[c] = true
}

func unregisterClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	delete(broadcastList, c)
}

func broadcast(e *event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	globalLock.Lock()
	defer globalLock.Unlock()
	for c := range broadcastList {
		select {
		case c.send <- data:
		default: // slow listener, drop
		}
	}
}

func emit(msg string, typ int, progress float32) {
	broadcast(&event{Message: msg, Time: time.Now(), Type: typ, Progress: progress})
}

func Info(format string, a ...interface{}) {
	logrus.Infof(format, a...)
	emit(fmt.Sprintf(format, a...), INFO, 0)
}

// Warning reports a recoverable decode problem, e.g. a CASE with no
// matching KEYB section.
func Warning(format string, a ...interface{}) {
	logrus.Warnf(format, a...)
	emit(fmt.Sprintf(format, a...), WARNING, 0)
}

func Progress(progress float32, format string, a ...interface{}) {
	emit(fmt.Sprintf(format, a...), PROGRESS, progress)
}
