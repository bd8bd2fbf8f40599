package etorder

// ShouldNotifyReady 自动通知判定
// previous 为本次变更前已持久化的状态，order 为 Reconcile 之后的状态
// 仅在首次进入 ready、尚未发送且有邮箱时返回 true
func ShouldNotifyReady(previous Status, order *Order) bool {
	wasReady := previous == StatusReady
	nowReady := order.Status == StatusReady
	return nowReady && !wasReady && !order.NotificationSent && order.HasEmail()
}

// CanResend 手动补发判定：必须 ready 且有邮箱；已发送时只有 force 才允许
func CanResend(order *Order, force bool) bool {
	if order.Status != StatusReady || !order.HasEmail() {
		return false
	}
	return !order.NotificationSent || force
}
