package rollingbatch

import (
	"errors"
	"time"

	"github.com/Sternrassler/rollingbatch/pkg/transfer"
	"github.com/rs/zerolog"
)

// fakeItem is a work item whose result is its payload.
type fakeItem struct {
	payload string
	code    transfer.Code // completion code reported by fakeMux

	state    State
	err      error
	response string
	hasResp  bool
	setups   int
}

func newFakeItem(payload string) *fakeItem {
	return &fakeItem{payload: payload}
}

func (i *fakeItem) State() State { return i.state }

func (i *fakeItem) SetState(s State, err error) {
	if s == StateActive {
		i.response, i.hasResp = "", false
	}
	i.state = s
	i.err = err
}

func (i *fakeItem) Result() (string, bool) {
	return i.response, i.hasResp
}

type fakeHandle struct {
	item   *fakeItem
	closed int
}

func (h *fakeHandle) Finish() {
	if transfer.IsSuccess(h.item.code) {
		h.item.response, h.item.hasResp = h.item.payload, true
	}
}

func (h *fakeHandle) Info() transfer.Info {
	return transfer.Info{URL: "fake://" + h.item.payload}
}

func (h *fakeHandle) Close() error {
	h.closed++
	return nil
}

// fakeMux completes up to perStep running handles per Perform call, in
// submission order.
type fakeMux struct {
	perStep int

	running  []*fakeHandle
	messages []transfer.Message
	handles  []*fakeHandle

	// injected behavior
	newHandleErr map[*fakeItem]error
	addCode      transfer.MultiCode
	performCode  transfer.MultiCode
	callAgain    int
	waitErr      error

	// observations
	maxRunning   int
	performCalls int
	waits        []time.Duration
	removed      int
	closed       bool
}

func newFakeMux(perStep int) *fakeMux {
	return &fakeMux{perStep: perStep}
}

func (m *fakeMux) NewHandle(item *fakeItem) (transfer.Handle, error) {
	if err := m.newHandleErr[item]; err != nil {
		return nil, err
	}
	item.setups++
	h := &fakeHandle{item: item}
	m.handles = append(m.handles, h)
	return h, nil
}

func (m *fakeMux) Add(h transfer.Handle) transfer.MultiCode {
	if m.addCode != transfer.MultiOK {
		return m.addCode
	}
	m.running = append(m.running, h.(*fakeHandle))
	if len(m.running) > m.maxRunning {
		m.maxRunning = len(m.running)
	}
	return transfer.MultiOK
}

func (m *fakeMux) Remove(h transfer.Handle) transfer.MultiCode {
	m.removed++
	for i, r := range m.running {
		if r == h {
			m.running = append(m.running[:i], m.running[i+1:]...)
			break
		}
	}
	return transfer.MultiOK
}

func (m *fakeMux) Perform() (int, transfer.MultiCode) {
	m.performCalls++
	if m.callAgain > 0 {
		m.callAgain--
		return len(m.running), transfer.MultiCallAgain
	}
	if m.performCode != transfer.MultiOK {
		return 0, m.performCode
	}

	n := m.perStep
	if n > len(m.running) {
		n = len(m.running)
	}
	for _, h := range m.running[:n] {
		m.messages = append(m.messages, transfer.Message{Handle: h, Code: h.item.code})
	}
	m.running = m.running[n:]
	return len(m.running), transfer.MultiOK
}

func (m *fakeMux) InfoRead() (transfer.Message, bool) {
	if len(m.messages) == 0 {
		return transfer.Message{}, false
	}
	msg := m.messages[0]
	m.messages = m.messages[1:]
	return msg, true
}

func (m *fakeMux) Wait(timeout time.Duration) error {
	m.waits = append(m.waits, timeout)
	return m.waitErr
}

func (m *fakeMux) Close() error {
	m.closed = true
	return nil
}

var errFakeWait = errors.New("wait failed")

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialWait = time.Microsecond
	cfg.WaitTimeout = 2 * time.Microsecond
	cfg.ErrorSleep = time.Microsecond
	logger := zerolog.Nop()
	cfg.Logger = &logger
	return cfg
}
