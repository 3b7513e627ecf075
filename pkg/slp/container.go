package slp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

var (
	rawHeader   = []byte{'{', 'U', 3, 'r', 'a', 'w', '[', '$', 'U', '#', 'l'}
	metadataKey = []byte{'U', 8, 'm', 'e', 't', 'a', 'd', 'a', 't', 'a'}
)

// StreamOffset is where the event stream begins inside a capture
const StreamOffset = 15

// Container is the event stream view plus whatever the envelope carried around it
type Container struct {
	// Stream aliases the input buffer
	Stream []byte
	// DeclaredLength is the raw array length from the envelope, 0 for unfinalized recordings
	DeclaredLength int
	Metadata       Metadata
	HasMetadata    bool
	// MetadataErr is set when a metadata block was found but could not be read
	MetadataErr error
}

// Metadata is the trailing UBJSON object written when a recording is finalized
type Metadata struct {
	StartAt      string
	LastFrame    int32
	HasLastFrame bool
	PlayedOn     string
	ConsoleNick  string
	Players      map[int]MetadataPlayer
}

// MetadataPlayer holds the per-port names recorded by the console
type MetadataPlayer struct {
	Netplay string
	Code    string
}

// Unwrap validates the UBJSON envelope and returns the event stream range
func Unwrap(data []byte) (*Container, error) {
	if len(data) < StreamOffset {
		return nil, newDecodeError(KindMalformedContainer, 0, 0, "capture is %d bytes, header needs %d", len(data), StreamOffset)
	}
	if !bytes.Equal(data[:len(rawHeader)], rawHeader) {
		return nil, newDecodeError(KindMalformedContainer, 0, 0, "missing raw array header")
	}

	declared := int32(binary.BigEndian.Uint32(data[len(rawHeader):]))
	if declared < 0 {
		return nil, newDecodeError(KindMalformedContainer, len(rawHeader), 0, "negative raw length %d", declared)
	}

	c := &Container{DeclaredLength: int(declared)}
	end := StreamOffset + int(declared)
	if declared == 0 {
		// recording was never finalized; the stream runs until metadata or EOF
		end = len(data)
		if i := bytes.Index(data[StreamOffset:], metadataKey); i >= 0 {
			end = StreamOffset + i
		}
	} else if end > len(data) {
		return nil, newDecodeError(KindMalformedContainer, len(rawHeader), 0,
			"raw length %d exceeds the %d bytes available", declared, len(data)-StreamOffset)
	}
	c.Stream = data[StreamOffset:end]

	rest := data[end:]
	if i := bytes.Index(rest, metadataKey); i >= 0 {
		md, err := parseMetadata(rest[i+len(metadataKey):])
		if err != nil {
			c.MetadataErr = err
		} else {
			c.Metadata = md
			c.HasMetadata = true
		}
	}

	return c, nil
}

func parseMetadata(b []byte) (Metadata, error) {
	var md Metadata
	p := &ubjsonParser{b: b}
	v, err := p.value()
	if err != nil {
		return md, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return md, fmt.Errorf("metadata is not an object")
	}

	md.StartAt, _ = obj["startAt"].(string)
	md.PlayedOn, _ = obj["playedOn"].(string)
	if n, ok := obj["lastFrame"].(int64); ok {
		md.LastFrame = int32(n)
		md.HasLastFrame = true
	}
	if console, ok := obj["consoleNick"].(string); ok {
		md.ConsoleNick = console
	}

	if players, ok := obj["players"].(map[string]interface{}); ok {
		md.Players = make(map[int]MetadataPlayer, len(players))
		for k, raw := range players {
			port, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			pl, _ := raw.(map[string]interface{})
			names, _ := pl["names"].(map[string]interface{})
			var mp MetadataPlayer
			mp.Netplay, _ = names["netplay"].(string)
			mp.Code, _ = names["code"].(string)
			md.Players[port] = mp
		}
	}

	return md, nil
}

// maxMetadataDepth bounds container nesting in the metadata block
const maxMetadataDepth = 32

// ubjsonParser reads the subset of UBJSON the recorder emits in the metadata block
type ubjsonParser struct {
	b     []byte
	pos   int
	depth int
}

// enter tracks one level of nesting, failing past maxMetadataDepth
func (p *ubjsonParser) enter() error {
	p.depth++
	if p.depth > maxMetadataDepth {
		return fmt.Errorf("ubjson: nesting deeper than %d at %d", maxMetadataDepth, p.pos)
	}
	return nil
}

func (p *ubjsonParser) next() (byte, error) {
	if p.pos >= len(p.b) {
		return 0, fmt.Errorf("ubjson: unexpected end at %d", p.pos)
	}
	c := p.b[p.pos]
	p.pos++
	return c, nil
}

func (p *ubjsonParser) take(n int) ([]byte, error) {
	if n < 0 || p.pos+n > len(p.b) {
		return nil, fmt.Errorf("ubjson: %d bytes needed at %d", n, p.pos)
	}
	out := p.b[p.pos : p.pos+n]
	p.pos += n
	return out, nil
}

func (p *ubjsonParser) value() (interface{}, error) {
	marker, err := p.next()
	if err != nil {
		return nil, err
	}
	return p.typed(marker)
}

func (p *ubjsonParser) typed(marker byte) (interface{}, error) {
	switch marker {
	case 'Z':
		return nil, nil
	case 'T':
		return true, nil
	case 'F':
		return false, nil
	case 'i', 'U', 'I', 'l', 'L':
		return p.integer(marker)
	case 'd':
		b, err := p.take(4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case 'D':
		b, err := p.take(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case 'C':
		c, err := p.next()
		return string(rune(c)), err
	case 'S', 'H':
		return p.str()
	case '{':
		return p.object()
	case '[':
		return p.array()
	default:
		return nil, fmt.Errorf("ubjson: unknown marker %q at %d", marker, p.pos-1)
	}
}

func (p *ubjsonParser) integer(marker byte) (int64, error) {
	var n int
	switch marker {
	case 'i', 'U':
		n = 1
	case 'I':
		n = 2
	case 'l':
		n = 4
	case 'L':
		n = 8
	default:
		return 0, fmt.Errorf("ubjson: %q is not an integer marker", marker)
	}
	b, err := p.take(n)
	if err != nil {
		return 0, err
	}
	switch marker {
	case 'i':
		return int64(int8(b[0])), nil
	case 'U':
		return int64(b[0]), nil
	case 'I':
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case 'l':
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	default:
		return int64(binary.BigEndian.Uint64(b)), nil
	}
}

func (p *ubjsonParser) length() (int, error) {
	marker, err := p.next()
	if err != nil {
		return 0, err
	}
	n, err := p.integer(marker)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(len(p.b)) {
		return 0, fmt.Errorf("ubjson: bad length %d", n)
	}
	return int(n), nil
}

func (p *ubjsonParser) str() (string, error) {
	n, err := p.length()
	if err != nil {
		return "", err
	}
	b, err := p.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// container reads the optional $type and #count prefix shared by arrays and objects
func (p *ubjsonParser) container() (elemType byte, count int, err error) {
	count = -1
	if p.pos < len(p.b) && p.b[p.pos] == '$' {
		p.pos++
		if elemType, err = p.next(); err != nil {
			return 0, 0, err
		}
		if p.pos >= len(p.b) || p.b[p.pos] != '#' {
			return 0, 0, fmt.Errorf("ubjson: typed container without count at %d", p.pos)
		}
	}
	if p.pos < len(p.b) && p.b[p.pos] == '#' {
		p.pos++
		if count, err = p.length(); err != nil {
			return 0, 0, err
		}
	}
	return elemType, count, nil
}

func (p *ubjsonParser) element(elemType byte) (interface{}, error) {
	if elemType != 0 {
		return p.typed(elemType)
	}
	return p.value()
}

func (p *ubjsonParser) object() (map[string]interface{}, error) {
	defer func() { p.depth-- }()
	if err := p.enter(); err != nil {
		return nil, err
	}
	elemType, count, err := p.container()
	if err != nil {
		return nil, err
	}
	obj := make(map[string]interface{})
	for i := 0; count < 0 || i < count; i++ {
		if count < 0 {
			if p.pos >= len(p.b) {
				return nil, fmt.Errorf("ubjson: unterminated object")
			}
			if p.b[p.pos] == '}' {
				p.pos++
				break
			}
		}
		key, err := p.str()
		if err != nil {
			return nil, err
		}
		v, err := p.element(elemType)
		if err != nil {
			return nil, fmt.Errorf("ubjson: key %q: %w", key, err)
		}
		obj[key] = v
	}
	return obj, nil
}

func (p *ubjsonParser) array() ([]interface{}, error) {
	defer func() { p.depth-- }()
	if err := p.enter(); err != nil {
		return nil, err
	}
	elemType, count, err := p.container()
	if err != nil {
		return nil, err
	}
	var arr []interface{}
	for i := 0; count < 0 || i < count; i++ {
		if count < 0 {
			if p.pos >= len(p.b) {
				return nil, fmt.Errorf("ubjson: unterminated array")
			}
			if p.b[p.pos] == ']' {
				p.pos++
				break
			}
		}
		v, err := p.element(elemType)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}
