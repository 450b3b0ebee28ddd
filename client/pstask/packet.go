package pstask

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxPacketSize bounds every packet, fixed header included.
const MaxPacketSize = 128

const protocolVersion = 1

// PacketType is the high nibble of the fixed header.
type PacketType uint8

const (
	Connect     PacketType = 1 << 4
	ConnAck     PacketType = 2 << 4
	Publish     PacketType = 3 << 4
	PubAck      PacketType = 4 << 4
	PubRec      PacketType = 5 << 4
	PubRel      PacketType = 6 << 4
	PubComp     PacketType = 7 << 4
	Subscribe   PacketType = 8 << 4
	SubAck      PacketType = 9 << 4
	Unsubscribe PacketType = 10 << 4
	UnsubAck    PacketType = 11 << 4
	PingReq     PacketType = 12 << 4
	PingResp    PacketType = 13 << 4
	Disconnect  PacketType = 14 << 4
)

const (
	flagRetain = 1
	flagQoS1   = 1 << 1
	qosMask    = 0x06
)

func (t PacketType) String() string {
	switch t {
	case Connect:
		return "CONNECT"
	case ConnAck:
		return "CONNACK"
	case Publish:
		return "PUBLISH"
	case PubAck:
		return "PUBACK"
	case PubRec:
		return "PUBREC"
	case PubRel:
		return "PUBREL"
	case PubComp:
		return "PUBCOMP"
	case Subscribe:
		return "SUBSCRIBE"
	case SubAck:
		return "SUBACK"
	case Unsubscribe:
		return "UNSUBSCRIBE"
	case UnsubAck:
		return "UNSUBACK"
	case PingReq:
		return "PINGREQ"
	case PingResp:
		return "PINGRESP"
	case Disconnect:
		return "DISCONNECT"
	default:
		return fmt.Sprintf("packet(0x%02x)", uint8(t))
	}
}

var (
	ErrPacketTooLarge = errors.New("pstask: packet too large")
	ErrMalformed      = errors.New("pstask: malformed packet")
)

// Packet is one decoded control packet.
type Packet struct {
	Header byte
	Body   []byte
}

func (p Packet) Type() PacketType { return PacketType(p.Header & 0xF0) }

// Message is the content of a PUBLISH packet.
type Message struct {
	Topic    string
	Payload  []byte
	MsgID    uint16
	QoS      uint8
	Retained bool
}

// appendLength appends the remaining length as a base-128 varint.
func appendLength(dst []byte, n int) []byte {
	for {
		digit := byte(n % 128)
		n /= 128
		if n > 0 {
			digit |= 0x80
		}
		dst = append(dst, digit)
		if n == 0 {
			return dst
		}
	}
}

// appendString appends a 2-byte big-endian length and the string bytes.
func appendString(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...)
}

// encode frames body behind header.
func encode(header byte, body []byte) ([]byte, error) {
	pkt := make([]byte, 0, len(body)+5)
	pkt = append(pkt, header)
	pkt = appendLength(pkt, len(body))
	pkt = append(pkt, body...)
	if len(pkt) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrPacketTooLarge, PacketType(header&0xF0), len(pkt))
	}
	return pkt, nil
}

func encodeConnect(id string, keepAlive uint16) ([]byte, error) {
	body := []byte{0x00, 0x06, protocolVersion, 0x02}
	body = binary.BigEndian.AppendUint16(body, keepAlive)
	body = appendString(body, id)
	return encode(byte(Connect), body)
}

func encodePublish(topic string, payload []byte, retained bool) ([]byte, error) {
	header := byte(Publish)
	if retained {
		header |= flagRetain
	}
	body := appendString(make([]byte, 0, 2+len(topic)+len(payload)), topic)
	body = append(body, payload...)
	return encode(header, body)
}

func encodeSubscribe(id uint16, topic string, qos uint8) ([]byte, error) {
	body := binary.BigEndian.AppendUint16(nil, id)
	body = appendString(body, topic)
	body = append(body, qos)
	return encode(byte(Subscribe)|flagQoS1, body)
}

func encodeUnsubscribe(id uint16, topic string) ([]byte, error) {
	body := binary.BigEndian.AppendUint16(nil, id)
	body = appendString(body, topic)
	return encode(byte(Unsubscribe)|flagQoS1, body)
}

func encodeAck(t PacketType, id uint16) []byte {
	return []byte{byte(t), 2, byte(id >> 8), byte(id)}
}

func encodeEmpty(t PacketType) []byte {
	return []byte{byte(t), 0}
}

// decodePublish splits a PUBLISH body into topic, message id and payload.
func decodePublish(p Packet) (Message, error) {
	b := p.Body
	if len(b) < 2 {
		return Message{}, ErrMalformed
	}
	tl := int(binary.BigEndian.Uint16(b))
	b = b[2:]
	if len(b) < tl {
		return Message{}, ErrMalformed
	}
	m := Message{
		Topic:    string(b[:tl]),
		QoS:      (p.Header & qosMask) >> 1,
		Retained: p.Header&flagRetain != 0,
	}
	b = b[tl:]
	if p.Header&qosMask == flagQoS1 {
		if len(b) < 2 {
			return Message{}, ErrMalformed
		}
		m.MsgID = binary.BigEndian.Uint16(b)
		b = b[2:]
	}
	m.Payload = append([]byte(nil), b...)
	return m, nil
}
