package where

import (
	"path/filepath"
	"testing"

	"github.com/hlsplay/hlsplay/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Logs() lives under Config()", func() {
			path := Logs()
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
			So(filepath.Dir(path), ShouldEqual, Config())
		})

		Convey("Sockets() lives under Temp()", func() {
			path := Sockets()
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
			So(filepath.Dir(path), ShouldEqual, Temp())
		})

		Convey("History() is a file path, not a directory", func() {
			So(filepath.Ext(History()), ShouldEqual, ".json")
		})
	})
}

func TestConfigOverride(t *testing.T) {
	Convey("Given HLSPLAY_CONFIG_PATH", t, func() {
		t.Setenv(EnvConfigPath, "/tmp/hlsplay-custom")

		Convey("Config() returns it", func() {
			So(Config(), ShouldEqual, "/tmp/hlsplay-custom")
		})
	})
}
