package eventloop

import (
	"errors"
	"testing"

	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func TestChainDispatch(t *testing.T) {
	tests := []struct {
		name          string
		outcomes      []Outcome[string]
		expected      Result
		expectedErr   string
		expectedCalls []string
	}{
		{
			name:          "continue then capture stops at capturing handler",
			outcomes:      []Outcome[string]{Continue[string](), Capture[string]()},
			expected:      ResultCaptured,
			expectedCalls: []string{"h0", "h1"},
		},
		{
			name:          "all continue runs every handler once",
			outcomes:      []Outcome[string]{Continue[string](), Continue[string]()},
			expected:      ResultContinue,
			expectedCalls: []string{"h0", "h1"},
		},
		{
			name:          "single failing handler",
			outcomes:      []Outcome[string]{Fail("x")},
			expected:      ResultFailed,
			expectedErr:   "x",
			expectedCalls: []string{"h0"},
		},
		{
			name:          "capture short-circuits later handlers",
			outcomes:      []Outcome[string]{Continue[string](), Capture[string](), Continue[string](), Fail("never")},
			expected:      ResultCaptured,
			expectedCalls: []string{"h0", "h1"},
		},
		{
			name:          "failure short-circuits later handlers",
			outcomes:      []Outcome[string]{Continue[string](), Continue[string](), Fail("boom"), Capture[string]()},
			expected:      ResultFailed,
			expectedErr:   "boom",
			expectedCalls: []string{"h0", "h1", "h2"},
		},
		{
			name:          "empty chain continues",
			outcomes:      nil,
			expected:      ResultContinue,
			expectedCalls: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			handlers := make([]Handler[string, string], len(tt.outcomes))
			for i, out := range tt.outcomes {
				handlers[i] = rec.handler("h"+string(rune('0'+i)), out)
			}

			chain := NewChain(handlers...)
			out := chain.Dispatch(&Event[string]{Seq: 1, Kind: KindKey}, &ExitFlag{})

			assert.Equal(t, tt.expected, out.Result())
			assert.Equal(t, tt.expectedCalls, rec.calls)

			err, failed := out.Err()
			assert.Equal(t, tt.expected == ResultFailed, failed)
			assert.Equal(t, tt.expectedErr, err)
		})
	}
}

func TestChainDispatchPreservesMutations(t *testing.T) {
	appendText := func(s string) Handler[string, string] {
		return HandlerFunc[string, string](func(ev *Event[string], _ Target) Outcome[string] {
			ev.Text += s
			return Continue[string]()
		})
	}
	failIfUnmarked := HandlerFunc[string, string](func(ev *Event[string], _ Target) Outcome[string] {
		if ev.Text != "ab" {
			return Fail("unexpected text " + ev.Text)
		}
		ev.Handled = true
		return Fail("stop")
	})

	chain := NewChain(appendText("a"), appendText("b"), failIfUnmarked, appendText("c"))
	ev := &Event[string]{Seq: 1, Kind: KindKey}

	out := chain.Dispatch(ev, &ExitFlag{})

	err, failed := out.Err()
	require.True(t, failed)
	assert.Equal(t, "stop", err)
	assert.Equal(t, "ab", ev.Text)
	assert.True(t, ev.Handled)
}

func TestNewChainCopiesHandlers(t *testing.T) {
	rec := &recorder{}
	handlers := []Handler[string, string]{rec.handler("a", Continue[string]()), nil}

	chain := NewChain(handlers...)
	handlers[0] = rec.handler("replaced", Capture[string]())

	assert.Equal(t, 1, chain.Len())
	out := chain.Dispatch(&Event[string]{}, &ExitFlag{})
	assert.True(t, out.Continued())
	assert.Equal(t, []string{"a"}, rec.calls)
}

func TestErrorHandler(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name     string
		captured bool
		err      error
		expected Result
	}{
		{name: "not captured", captured: false, err: nil, expected: ResultContinue},
		{name: "captured", captured: true, err: nil, expected: ResultCaptured},
		{name: "error wins over captured", captured: true, err: errBoom, expected: ResultFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := ErrorHandler[string](func(*Event[string], Target) (bool, error) {
				return tt.captured, tt.err
			})

			out := h.HandleEvent(&Event[string]{}, &ExitFlag{})

			assert.Equal(t, tt.expected, out.Result())
			if tt.err != nil {
				err, _ := out.Err()
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}
