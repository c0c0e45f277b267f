package remote

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/transport"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestServer() (*Server, *httptest.Server, chan tea.Msg) {
	sent := make(chan tea.Msg, 8)
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "hlsplay_test_total", Help: "test"}))

	s := New(Options{
		Send:     func(msg tea.Msg) { sent <- msg },
		Gatherer: reg,
	})
	return s, httptest.NewServer(s.Handler()), sent
}

func post(srv *httptest.Server, name, body string) (int, string) {
	resp, err := http.Post(srv.URL+"/commands/"+name, "application/json", strings.NewReader(body))
	So(err, ShouldBeNil)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	So(err, ShouldBeNil)
	return resp.StatusCode, string(data)
}

func receive(sent chan tea.Msg) transport.Command {
	select {
	case msg := <-sent:
		cmd, ok := msg.(transport.Command)
		So(ok, ShouldBeTrue)
		return cmd
	case <-time.After(time.Second):
		So("no command was sent", ShouldBeEmpty)
		return transport.Command{}
	}
}

func TestState(t *testing.T) {
	Convey("Given a remote server", t, func() {
		s, srv, _ := newTestServer()
		defer srv.Close()

		get := func() map[string]any {
			resp, err := http.Get(srv.URL + "/state")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var body map[string]any
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			return body
		}

		Convey("Then the initial state is idle", func() {
			So(get()["phase"], ShouldEqual, "idle")
		})

		Convey("When a state is observed", func() {
			next := playback.Initial()
			next.Phase = playback.Playing
			next.Intent = true
			next.CurrentTime = 12
			s.Observe(playback.PlayIntent{}, playback.Initial(), next)

			Convey("Then /state returns it", func() {
				body := get()
				So(body["phase"], ShouldEqual, "playing")
				So(body["playing"], ShouldEqual, true)
				So(body["current_time"], ShouldEqual, 12.0)
			})
		})

		Convey("Then metrics are served", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			data, _ := io.ReadAll(resp.Body)
			So(string(data), ShouldContainSubstring, "hlsplay_test_total")
		})
	})
}

func TestCommands(t *testing.T) {
	Convey("Given a remote server", t, func() {
		_, srv, sent := newTestServer()
		defer srv.Close()

		Convey("When a seek is posted", func() {
			status, _ := post(srv, "seek", `{"time": 12.5}`)

			Convey("Then it is forwarded to the event loop", func() {
				So(status, ShouldEqual, http.StatusAccepted)
				So(receive(sent), ShouldResemble, transport.Command{Name: "seek", Value: 12.5, Index: -1})
			})
		})

		Convey("When a quality level is posted", func() {
			status, _ := post(srv, "quality", `{"index": 1}`)

			Convey("Then the index is forwarded", func() {
				So(status, ShouldEqual, http.StatusAccepted)
				So(receive(sent).Index, ShouldEqual, 1)
			})
		})

		Convey("When a command without a body is posted", func() {
			status, _ := post(srv, "toggle", "")

			Convey("Then it is accepted", func() {
				So(status, ShouldEqual, http.StatusAccepted)
				So(receive(sent).Name, ShouldEqual, "toggle")
			})
		})

		Convey("When a seek misses its time", func() {
			status, body := post(srv, "seek", `{}`)

			Convey("Then it is rejected", func() {
				So(status, ShouldEqual, http.StatusBadRequest)
				So(body, ShouldContainSubstring, `"field":"time"`)
				So(sent, ShouldBeEmpty)
			})
		})

		Convey("When the volume is out of range", func() {
			status, body := post(srv, "volume", `{"volume": 2}`)

			Convey("Then it is rejected", func() {
				So(status, ShouldEqual, http.StatusBadRequest)
				So(body, ShouldContainSubstring, "LTE")
			})
		})

		Convey("When an open has no valid URL", func() {
			status, _ := post(srv, "open", `{"url": "not a url"}`)

			Convey("Then it is rejected", func() {
				So(status, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the body is malformed", func() {
			status, body := post(srv, "seek", `{"time":`)

			Convey("Then it is rejected", func() {
				So(status, ShouldEqual, http.StatusBadRequest)
				So(body, ShouldContainSubstring, "MALFORMED")
			})
		})

		Convey("When the command is unknown", func() {
			status, _ := post(srv, "rewind", `{}`)

			Convey("Then it is not found", func() {
				So(status, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestWebsocket(t *testing.T) {
	Convey("Given a websocket client", t, func() {
		s, srv, sent := newTestServer()
		defer srv.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		read := func() map[string]any {
			var body map[string]any
			So(conn.ReadJSON(&body), ShouldBeNil)
			return body
		}

		Convey("Then it first receives the current state", func() {
			So(read()["phase"], ShouldEqual, "idle")

			Convey("And every state observed afterwards", func() {
				next := playback.Initial()
				next.Phase = playback.Paused
				s.Observe(playback.PauseIntent{}, playback.Initial(), next)
				So(read()["phase"], ShouldEqual, "paused")
			})
		})

		Convey("When it sends a command", func() {
			read()
			So(conn.WriteJSON(map[string]any{"name": "volume", "volume": 0.4}), ShouldBeNil)

			Convey("Then it is forwarded like a posted one", func() {
				So(receive(sent), ShouldResemble, transport.Command{Name: "volume", Value: 0.4, Index: -1})
			})
		})
	})
}

func TestToken(t *testing.T) {
	Convey("Given a server that requires a token", t, func() {
		s := New(Options{Token: "secret"})
		srv := httptest.NewServer(s.Handler())
		defer srv.Close()

		get := func(path, auth string) int {
			req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
			So(err, ShouldBeNil)
			if auth != "" {
				req.Header.Set("Authorization", auth)
			}

			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			return resp.StatusCode
		}

		Convey("When no token is given", func() {
			Convey("Then the request is rejected", func() {
				So(get("/state", ""), ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When a wrong token is given", func() {
			Convey("Then the request is rejected", func() {
				So(get("/state", "Bearer nope"), ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When the bearer token matches", func() {
			Convey("Then the request is served", func() {
				So(get("/state", "Bearer secret"), ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the token is passed as a query parameter", func() {
			Convey("Then the request is served", func() {
				So(get("/state?token=secret", ""), ShouldEqual, http.StatusOK)
			})
		})
	})
}
