package query

import (
	"testing"

	"github.com/hlsplay/hlsplay/filesystem"
	"github.com/hlsplay/hlsplay/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.SearchShowSuggestions, true)
}

func TestQuery(t *testing.T) {
	Convey("Given remembered URLs", t, func() {
		So(Clear(), ShouldBeNil)

		low := "https://cdn.example.com/live/master.m3u8"
		high := "https://cdn.example.com/vod/Big_Buck_Bunny.m3u8"

		So(Remember(low, 1), ShouldBeNil)
		So(Remember(high, 10), ShouldBeNil)

		Convey("When asking for suggestions", func() {
			s := SuggestMany("cdn.example")

			Convey("Then they are sorted by rank", func() {
				So(s, ShouldResemble, []string{high, low})
			})
		})

		Convey("When the input matches loosely and ignoring case", func() {
			s := Suggest("bigbuck")

			Convey("Then the URL is still suggested", func() {
				So(s.OrEmpty(), ShouldEqual, high)
			})
		})

		Convey("When a URL is remembered again", func() {
			SuggestMany("m3u8")
			So(Remember(low, 20), ShouldBeNil)

			Convey("Then the new rank is used right away", func() {
				So(SuggestMany("m3u8")[0], ShouldEqual, low)
			})
		})

		Convey("When suggestions are disabled", func() {
			viper.Set(key.SearchShowSuggestions, false)
			defer viper.Set(key.SearchShowSuggestions, true)

			Convey("Then nothing is suggested", func() {
				So(SuggestMany("m3u8"), ShouldBeEmpty)
			})
		})

		Convey("It trims input", func() {
			So(sanitize("  https://a.b/c.m3u8 \n"), ShouldEqual, "https://a.b/c.m3u8")
		})
	})
}
