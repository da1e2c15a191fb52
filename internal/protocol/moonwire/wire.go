package moonwire

// MoonWire 类型码表（总线公布的 schema，u16 大端）
const (
	TypeLaserAltimeter uint16 = 0xAA01 // 入站：激光高度计读数
	TypeEngineCutoff   uint16 = 0xAA11 // 出站：着陆关机信号（一次性）
	TypeHeight         uint16 = 0xAA31 // 出站：融合高度
)

// TypeName 返回类型码的可读名称，未知类型返回空串
func TypeName(typ uint16) string {
	switch typ {
	case TypeLaserAltimeter:
		return "LASER_ALTIMETER"
	case TypeEngineCutoff:
		return "ENGINE_CUTOFF"
	case TypeHeight:
		return "HEIGHT"
	}
	return ""
}
