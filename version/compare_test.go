package version

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Given two versions", t, func() {
		cases := []struct {
			a, b string
			want int
		}{
			{"1.2.3", "1.2.3", 0},
			{"v1.2.3", "1.2.3", 0},
			{"1.10.0", "1.9.9", 1},
			{"0.9.0", "1.0.0", -1},
			{"1.0.0-rc.1", "1.0.0", -1},
			{"1.0.0", "1.0.0-rc.1", 1},
			{"1.0.0-rc.2", "1.0.0-rc.1", 1},
			{"1.0.0+build.5", "1.0.0", 0},
		}

		for _, c := range cases {
			Convey(c.a+" against "+c.b, func() {
				got, err := Compare(c.a, c.b)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, c.want)
			})
		}

		Convey("When one is not a version", func() {
			_, err := Compare("latest", "1.0.0")

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
