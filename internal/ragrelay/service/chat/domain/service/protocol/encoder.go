// Package protocol implements the line-oriented stream framing:
//
//	<kind>:<json array holding exactly one payload>\n
//
// Kind tags: 0 text delta, 2 data, 3 error, 8 state transition, 9 terminal,
// 12 tool call, 13 tool result. Clients hard-code this table.
package protocol

import (
	"fmt"
	"strconv"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/pkg"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// lastResortFrame is written when even the substitute error frame cannot be
// encoded, so that a consumer still sees a well-formed error.
const lastResortFrame = `3:[{"message":"event serialization failed","recoverable":true}]` + "\n"

// Encoder turns events into wire frames. It is stateless and safe for
// concurrent use.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// nullTerminalFrame follows the substitute of a Terminal whose result could
// not be serialized, so the stream still ends with a Terminal frame.
const nullTerminalFrame = "9:[null]\n"

// Encode returns the frame for ev. It never fails: an event whose payload
// cannot be serialized is replaced by a recoverable ErrorPart describing the
// failure, followed by 9:[null] when ev was a Terminal.
func (e *Encoder) Encode(ev entity.Event) []byte {
	if ev == nil {
		return e.substitute("nil event", fmt.Errorf("no event"))
	}

	frame, err := encodeFrame(ev.Kind(), ev.Payload())
	if err == nil {
		return frame
	}
	frame = e.substitute(ev.Kind().String(), err)
	if ev.Kind() == entity.KindTerminal {
		frame = append(frame, nullTerminalFrame...)
	}
	return frame
}

func (e *Encoder) substitute(what string, cause error) []byte {
	logger.WarnX(pkg.ModuleName, "[Encoder] serialize %s event failed, err: %v", what, cause)

	fallback := entity.ErrorPart{
		Message:     fmt.Sprintf("serialize %s event: %v", what, cause),
		Recoverable: true,
	}
	frame, err := encodeFrame(fallback.Kind(), fallback.Payload())
	if err != nil {
		return []byte(lastResortFrame)
	}
	return frame
}

func encodeFrame(kind entity.EventKind, payload any) (frame []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marshal panicked: %v", r)
		}
	}()

	if err := entity.ValidatePayload(payload); err != nil {
		return nil, err
	}
	body, err := json.Marshal([]any{payload})
	if err != nil {
		return nil, err
	}

	frame = make([]byte, 0, len(body)+5)
	frame = strconv.AppendInt(frame, int64(kind), 10)
	frame = append(frame, ':')
	frame = append(frame, body...)
	frame = append(frame, '\n')
	return frame, nil
}
