package eventloop

import (
	"errors"

	mock "github.com/stretchr/testify/mock"
)

// sliceSource delivers a fixed list of events and then returns err
type sliceSource struct {
	events    []Event[string]
	err       error
	runs      int
	delivered int
}

func (s *sliceSource) Run(fn func(ev *Event[string], target Target)) error {
	s.runs++
	target := &ExitFlag{}
	for i := range s.events {
		ev := s.events[i]
		fn(&ev, target)
		s.delivered++
		if target.Exiting() {
			break
		}
	}
	return s.err
}

func keyEvents(keys ...string) []Event[string] {
	events := make([]Event[string], len(keys))
	for i, k := range keys {
		events[i] = Event[string]{Seq: uint64(i + 1), Kind: KindKey, Key: k}
	}
	return events
}

// recorder builds handlers that log their invocations in order
type recorder struct {
	calls []string
}

func (r *recorder) handler(name string, out Outcome[string]) Handler[string, string] {
	return HandlerFunc[string, string](func(ev *Event[string], _ Target) Outcome[string] {
		r.calls = append(r.calls, name)
		return out
	})
}

func (r *recorder) count(name string) int {
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

// FakeProvider is a mock Provider
type FakeProvider struct {
	mock.Mock
}

func (m *FakeProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *FakeProvider) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *FakeProvider) Build() (Source[Unit], error) {
	args := m.Called()
	src, _ := args.Get(0).(Source[Unit])
	return src, args.Error(1)
}

// unitSource delivers n key events with no payload
type unitSource struct {
	n int
}

func (s *unitSource) Run(fn func(ev *Event[Unit], target Target)) error {
	target := &ExitFlag{}
	for i := 0; i < s.n && !target.Exiting(); i++ {
		fn(&Event[Unit]{Seq: uint64(i + 1), Kind: KindKey, Key: "x"}, target)
	}
	return nil
}

var errDisplay = errors.New("cannot open display")
