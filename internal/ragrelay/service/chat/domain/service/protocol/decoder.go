package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

const maxFrameSize = 4 << 20

// Frame is a decoded but untyped wire frame.
type Frame struct {
	Kind    entity.EventKind
	Payload json.RawMessage
}

// Decode parses a single frame. The trailing newline is optional.
func Decode(line []byte) (Frame, error) {
	line = bytes.TrimRight(line, "\r\n")
	idx := bytes.IndexByte(line, ':')
	if idx <= 0 {
		return Frame{}, fmt.Errorf("malformed frame %q: missing kind tag", truncate(line))
	}
	kind, err := strconv.Atoi(string(line[:idx]))
	if err != nil {
		return Frame{}, fmt.Errorf("malformed frame %q: bad kind tag: %w", truncate(line), err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(line[idx+1:], &items); err != nil {
		return Frame{}, fmt.Errorf("malformed frame %q: %w", truncate(line), err)
	}
	if len(items) != 1 {
		return Frame{}, fmt.Errorf("malformed frame %q: want one payload, got %d", truncate(line), len(items))
	}
	return Frame{Kind: entity.EventKind(kind), Payload: items[0]}, nil
}

// Event converts the frame back into its typed event.
func (f Frame) Event() (entity.Event, error) {
	switch f.Kind {
	case entity.KindTextDelta:
		var s string
		if err := json.Unmarshal(f.Payload, &s); err != nil {
			return nil, err
		}
		return entity.TextDelta{Content: s}, nil
	case entity.KindDataPayload:
		return decodeAs[entity.DataPayload](f.Payload)
	case entity.KindError:
		return decodeAs[entity.ErrorPart](f.Payload)
	case entity.KindStateTransition:
		return decodeAs[entity.StateTransition](f.Payload)
	case entity.KindToolCall:
		return decodeAs[entity.ToolCall](f.Payload)
	case entity.KindToolResult:
		return decodeAs[entity.ToolResult](f.Payload)
	case entity.KindTerminal:
		var result any
		if err := json.Unmarshal(f.Payload, &result); err != nil {
			return nil, err
		}
		return entity.Terminal{Result: result}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %d", int(f.Kind))
	}
}

func decodeAs[T entity.Event](raw json.RawMessage) (entity.Event, error) {
	var ev T
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Reader reads frames from a byte stream.
type Reader struct {
	sc *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &Reader{sc: sc}
}

// Next returns io.EOF once the stream is exhausted. Blank lines are skipped.
func (r *Reader) Next() (Frame, error) {
	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return Decode(line)
	}
	if err := r.sc.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

func truncate(b []byte) string {
	const limit = 64
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
