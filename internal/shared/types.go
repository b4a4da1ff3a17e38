package shared

// Asynq task types
const (
	TypeReconcileMints = "coin:reconcile_mints"
)

// Asynq queues, priority được cấu hình ở cmd/worker
const (
	QueueCritical = "critical"
	QueueCoin     = "coin"
	QueueDefault  = "default"
)

// ReconcileMintsPayload là payload cho TypeReconcileMints.
// MintID rỗng = quét toàn bộ intents cần xử lý.
type ReconcileMintsPayload struct {
	MintID string `json:"mint_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}
