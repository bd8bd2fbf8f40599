package etorder

// Status 订单状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusReady      Status = "ready"
	StatusCompleted  Status = "completed"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReady, StatusCompleted:
		return true
	}
	return false
}

// ItemStatus 单件状态
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "pending"
	ItemStatusReady   ItemStatus = "ready"
)

// DeriveStatus 由单件状态推导订单状态（纯函数，不处理 completed）
func DeriveStatus(items []*Item) Status {
	ready := 0
	for _, item := range items {
		if item.Status == ItemStatusReady {
			ready++
		}
	}
	switch {
	case ready == 0:
		return StatusPending
	case ready == len(items):
		return StatusReady
	default:
		return StatusInProgress
	}
}
