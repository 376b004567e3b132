package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"parcel-api/internal/cadastre"
	"parcel-api/internal/overlay"
	"parcel-api/internal/pointer"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 4096
)

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(allowed),
	}
}

// checkOrigin：无 Origin（非浏览器客户端）与同源放行；其余必须在白名单内，"*" 放行全部
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// 客户端 → 服务端：move/click 需要坐标，leave 不需要
type clientMsg struct {
	Type string   `json:"type"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
}

type helloMsg struct {
	Type    string `json:"type"`
	Session string `json:"session"`
}

// overlayMsg：hovered/selected 变化；overlay 为 null 表示清空，pending 表示点击后的过渡清空
type overlayMsg struct {
	Type    string           `json:"type"`
	Overlay *overlay.Overlay `json:"overlay"`
	Pending bool             `json:"pending"`
}

type pickedMsg struct {
	Type   string                 `json:"type"`
	Parcel pointer.SelectedParcel `json:"parcel"`
}

type errorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// 文档注释：websocket 地图会话
// 背景：浏览器地图把指针事件推到服务端，会话内的协调器解析地块并把悬停/选中变化推回，
// 点击命中时额外推送 parcel_picked 供建房源流程使用。
// 约束：连接关闭即卸载协调器；写出由单独协程串行完成，会话循环只负责投递。
func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("ws_upgrade_error", "origin", r.Header.Get("Origin"), "err", err)
		return
	}
	out := make(chan any, 64)
	done := make(chan struct{})
	send := func(m any) {
		select {
		case out <- m:
		case <-done:
		}
	}

	sess := h.Sessions.Open(func(p pointer.SelectedParcel) {
		send(pickedMsg{Type: "parcel_picked", Parcel: p})
	})
	unsub := sess.State.Subscribe(func(c overlay.Change) {
		send(overlayMsg{Type: string(c.Slot), Overlay: c.Overlay, Pending: c.Pending})
	})
	log := h.Log.With("session", sess.ID)
	log.Info("ws_session_open", "remote", r.RemoteAddr)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(conn, out, done)
	}()
	send(helloMsg{Type: "session", Session: sess.ID})

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("ws_read_error", "err", err)
			}
			break
		}
		var m clientMsg
		if err := json.Unmarshal(data, &m); err != nil {
			send(errorMsg{Type: "error", Error: "invalid message"})
			continue
		}
		switch m.Type {
		case "move", "click":
			if m.Lat == nil || m.Lng == nil || !validCoord(*m.Lat, *m.Lng) {
				send(errorMsg{Type: "error", Error: errBadCoord.Error()})
				continue
			}
			p := pointer.LatLng{Lat: *m.Lat, Lng: *m.Lng}
			if m.Type == "move" {
				sess.Move(p)
			} else {
				sess.Click(p)
			}
		case "leave":
			sess.Leave()
		default:
			send(errorMsg{Type: "error", Error: "unknown message type"})
		}
	}

	h.Sessions.Close(sess.ID)
	unsub()
	close(done)
	wg.Wait()
	_ = conn.Close()
	log.Info("ws_session_closed")
}

func (h *handlers) writePump(conn *websocket.Conn, out <-chan any, done <-chan struct{}) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	broken := false
	for {
		select {
		case <-done:
			if !broken {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			}
			return
		case m := <-out:
			if broken {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(m); err != nil {
				h.Log.Debug("ws_write_error", "err", err)
				broken = true
				_ = conn.Close()
			}
		case <-ping.C:
			if broken {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				broken = true
				_ = conn.Close()
			}
		}
	}
}

// pickedAt：HTTP 解析接口的返回体与 parcel_picked 同形
func pickedAt(f *cadastre.Feature, lat, lon float64) pointer.SelectedParcel {
	return pointer.NewSelectedParcel(f, pointer.LatLng{Lat: lat, Lng: lon})
}
