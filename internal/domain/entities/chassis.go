package entities

// Chassis는 파티션과 어댑터를 호스팅하는 물리 하드웨어(CPC)입니다
type Chassis struct {
	ObjectID   string
	Name       string
	DPMEnabled bool
	Adapters   map[string]Adapter // 소문자 object-id 기준
}

// Adapter는 섀시에 장착된 물리 네트워크 어댑터입니다
type Adapter struct {
	ObjectID  string
	Name      string
	ChassisID string
	PortCount int
}

// Adapter는 object-id로 어댑터를 조회합니다
func (c *Chassis) Adapter(id string) (Adapter, bool) {
	a, ok := c.Adapters[id]
	return a, ok
}
