package pagination

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Offset is skip/limit paging for local list endpoints.
type Offset struct {
	Skip  int `form:"skip,default=0" validate:"gte=0"`
	Limit int `form:"limit,default=100" validate:"gte=1,lte=1000"`
}

// Normalize clamps values into the accepted window.
func (o Offset) Normalize() Offset {
	if o.Skip < 0 {
		o.Skip = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// Count is the remote listing shape used by the gateway (count/skip).
type Count struct {
	Count int `form:"count,default=10" validate:"gte=1,lte=100"`
	Skip  int `form:"skip,default=0" validate:"gte=0"`
}

func (c Count) Normalize() Count {
	if c.Count <= 0 {
		c.Count = 10
	}
	if c.Count > 100 {
		c.Count = 100
	}
	if c.Skip < 0 {
		c.Skip = 0
	}
	return c
}
