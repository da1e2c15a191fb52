package moonwire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrFrameTooShort   = errors.New("frame too short")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Decode 解析一帧（仅做帧级校验，payload 原样切出不复制）
func Decode(raw []byte) (*Frame, error) {
	if len(raw) < HeaderLen {
		return nil, ErrFrameTooShort
	}
	if len(raw) > MaxFrameLen {
		return nil, ErrPayloadTooLarge
	}
	return &Frame{
		Type:      binary.BigEndian.Uint16(raw[0:2]),
		Timestamp: binary.BigEndian.Uint32(raw[2:6]),
		Payload:   raw[HeaderLen:],
	}, nil
}

// Encode 构造一帧（与 Decode 对应）。
// payload 超限属于编程错误：出站报文全部由本进程构造，
// 尺寸不变式必须在构造处成立，违反直接 panic 而不是返回错误。
func Encode(f *Frame) []byte {
	if len(f.Payload) > MaxPayloadLen {
		panic(fmt.Sprintf("moonwire: encode payload %d bytes exceeds %d", len(f.Payload), MaxPayloadLen))
	}
	buf := make([]byte, HeaderLen+len(f.Payload))
	binary.BigEndian.PutUint16(buf[0:2], f.Type)
	binary.BigEndian.PutUint32(buf[2:6], f.Timestamp)
	copy(buf[HeaderLen:], f.Payload)
	return buf
}
