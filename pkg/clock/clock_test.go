package clock

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFakeClock(t *testing.T) {
	Convey("Given a fake clock", t, func() {
		start := time.Unix(1000, 0)
		c := NewFake(start)

		Convey("When timers are scheduled out of order", func() {
			var fired []string
			c.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
			c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
			c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })

			Convey("Then they fire in due order once advanced past", func() {
				c.Advance(2 * time.Second)
				So(fired, ShouldResemble, []string{"a", "b"})
				So(c.Pending(), ShouldEqual, 1)
				c.Advance(time.Second)
				So(fired, ShouldResemble, []string{"a", "b", "c"})
				So(c.Now(), ShouldEqual, start.Add(3*time.Second))
			})
		})

		Convey("When a timer is stopped", func() {
			fired := 0
			tm := c.AfterFunc(time.Second, func() { fired++ })

			Convey("Then it never fires and a second stop reports false", func() {
				So(tm.Stop(), ShouldBeTrue)
				c.Advance(time.Minute)
				So(fired, ShouldEqual, 0)
				So(tm.Stop(), ShouldBeFalse)
			})
		})

		Convey("When a callback schedules another timer inside the window", func() {
			fired := 0
			c.AfterFunc(time.Second, func() {
				fired++
				c.AfterFunc(time.Second, func() { fired++ })
			})

			Convey("Then both fire in one advance", func() {
				c.Advance(5 * time.Second)
				So(fired, ShouldEqual, 2)
			})
		})
	})
}

func TestRealClock(t *testing.T) {
	c := Real()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
	if c.Now().IsZero() {
		t.Fatal("zero time")
	}
}
