package moonwire

// 帧尺寸不变式：type(2) + timestamp(4) + payload(0..4096)，总长 <= 4102
const (
	HeaderLen     = 6
	MaxPayloadLen = 4096
	MaxFrameLen   = HeaderLen + MaxPayloadLen
)

// Frame MoonWire 总线帧结构
// 布局：type[2 BE] | timestamp[4 BE] | payload[0..4096]
type Frame struct {
	Type      uint16 // 报文类型码
	Timestamp uint32 // 总线相对时间戳
	Payload   []byte // 变长载荷
}
