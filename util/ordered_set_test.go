package util

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestOrderedSet(t *testing.T) {
	convey.Convey("test ordered set basic", t, func() {
		s := NewOrderedSet()
		convey.So(s.Len(), convey.ShouldEqual, 0)
		convey.So(s.Contain("x"), convey.ShouldBeFalse)

		convey.So(s.Add("x"), convey.ShouldBeTrue)
		convey.So(s.Add("y"), convey.ShouldBeTrue)
		convey.So(s.Add("x"), convey.ShouldBeFalse)

		convey.So(s.Len(), convey.ShouldEqual, 2)
		convey.So(s.Contain("x"), convey.ShouldBeTrue)
		convey.So(s.Values(), convey.ShouldResemble, []string{"x", "y"})
	})

	convey.Convey("test ordered set keeps first-insertion order", t, func() {
		s := NewOrderedSet("c", "a", "b", "a", "c")
		convey.So(s.Values(), convey.ShouldResemble, []string{"c", "a", "b"})
	})
}
