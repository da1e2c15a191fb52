package moonwire

import (
	"encoding/binary"
	"errors"
	"math"
)

// LASER_ALTIMETER 载荷布局：sensorId[1] | height[8 BE float64]，单位米
const altimeterPayloadLen = 9

// 传感器编号范围 1..3，三路激光高度计
const (
	MinSensorID = 1
	MaxSensorID = 3
)

var (
	ErrBadAltimeterPayload = errors.New("bad altimeter payload")
	ErrBadHeightPayload    = errors.New("bad height payload")
	ErrBadSensorID         = errors.New("sensor id out of range")
)

// AltimeterReading LASER_ALTIMETER 解码结果
type AltimeterReading struct {
	SensorID  uint8
	Height    float64 // 米
	Timestamp uint32  // 取自帧头的总线时间戳
}

// DecodeAltimeter 解出一次高度计读数，载荷长度或传感器编号非法时报错
func DecodeAltimeter(f *Frame) (AltimeterReading, error) {
	if len(f.Payload) != altimeterPayloadLen {
		return AltimeterReading{}, ErrBadAltimeterPayload
	}
	id := f.Payload[0]
	if id < MinSensorID || id > MaxSensorID {
		return AltimeterReading{}, ErrBadSensorID
	}
	return AltimeterReading{
		SensorID:  id,
		Height:    math.Float64frombits(binary.BigEndian.Uint64(f.Payload[1:9])),
		Timestamp: f.Timestamp,
	}, nil
}

// EncodeAltimeter 构造一帧 LASER_ALTIMETER（模拟器与测试用）
func EncodeAltimeter(ts uint32, sensorID uint8, height float64) *Frame {
	p := make([]byte, altimeterPayloadLen)
	p[0] = sensorID
	binary.BigEndian.PutUint64(p[1:9], math.Float64bits(height))
	return &Frame{Type: TypeLaserAltimeter, Timestamp: ts, Payload: p}
}

// EncodeHeight 构造一帧 HEIGHT，时间戳回写触发它的入站帧时间戳
func EncodeHeight(ts uint32, height float64) *Frame {
	p := make([]byte, 8)
	binary.BigEndian.PutUint64(p, math.Float64bits(height))
	return &Frame{Type: TypeHeight, Timestamp: ts, Payload: p}
}

// DecodeHeight 解出融合高度（总线对端与测试用）
func DecodeHeight(f *Frame) (float64, error) {
	if len(f.Payload) != 8 {
		return 0, ErrBadHeightPayload
	}
	return math.Float64frombits(binary.BigEndian.Uint64(f.Payload)), nil
}

// EncodeEngineCutoff 构造一帧 ENGINE_CUTOFF，空载荷，语义本身就是信号
func EncodeEngineCutoff(ts uint32) *Frame {
	return &Frame{Type: TypeEngineCutoff, Timestamp: ts}
}
