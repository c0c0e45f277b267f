package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFetch(t *testing.T) {
	Convey("Given a manifest server", t, func() {
		var gotReferer, gotAgent string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReferer = r.Header.Get("Referer")
			gotAgent = r.Header.Get("User-Agent")
			if r.URL.Path == "/missing.m3u8" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte("#EXTM3U\n"))
		}))
		defer srv.Close()

		Convey("Fetch returns the body and sends extra headers", func() {
			body, err := Fetch(context.Background(), srv.URL+"/master.m3u8", []string{"Referer: https://example.com", "garbage"}, 1<<20)
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, "#EXTM3U\n")
			So(gotReferer, ShouldEqual, "https://example.com")
			So(gotAgent, ShouldStartWith, "hlsplay/")
		})

		Convey("Fetch reports non-2xx as a StatusError", func() {
			_, err := Fetch(context.Background(), srv.URL+"/missing.m3u8", nil, 1<<20)
			var statusErr *StatusError
			So(errors.As(err, &statusErr), ShouldBeTrue)
			So(statusErr.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Fetch caps the body", func() {
			body, err := Fetch(context.Background(), srv.URL+"/master.m3u8", nil, 3)
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, "#EX")
		})
	})
}
