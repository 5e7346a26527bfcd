package keyscan

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestScan(t *testing.T) {
	convey.Convey("scan finds keys in document order", t, func() {
		s, err := NewScanner([]string{"Smith19", "Einstein05", "Doe20"})
		convey.So(err, convey.ShouldBeNil)

		source := "As shown in :cite:`Smith19`, relativity :cite:`Einstein05` " +
			"and again :cite:`Smith19`."
		occs := s.Scan(source)
		keys := make([]string, 0, len(occs))
		for _, o := range occs {
			keys = append(keys, o.Key)
		}
		convey.So(keys, convey.ShouldResemble, []string{"Smith19", "Einstein05", "Smith19"})

		// offsets point at the key, not the role
		convey.So(string([]rune(source)[occs[0].Pos:occs[0].Pos+len("Smith19")]),
			convey.ShouldEqual, "Smith19")
	})

	convey.Convey("keys inside longer identifiers do not fire", t, func() {
		s, err := NewScanner([]string{"Smith19"})
		convey.So(err, convey.ShouldBeNil)

		convey.So(s.Scan("see Smith1999 for details"), convey.ShouldBeEmpty)
		convey.So(s.Scan("see XSmith19 for details"), convey.ShouldBeEmpty)
		convey.So(s.Scan("see Smith19 for details"), convey.ShouldHaveLength, 1)
	})

	convey.Convey("empty key set matches nothing", t, func() {
		s, err := NewScanner(nil)
		convey.So(err, convey.ShouldBeNil)
		convey.So(s.Scan("anything Smith19 at all"), convey.ShouldBeEmpty)
	})

	convey.Convey("duplicated and empty keys are tolerated", t, func() {
		s, err := NewScanner([]string{"a1", "a1", ""})
		convey.So(err, convey.ShouldBeNil)
		convey.So(s.Scan("x a1 y"), convey.ShouldHaveLength, 1)
	})
}
