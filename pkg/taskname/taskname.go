package taskname

const (
	// Contract events, published after the owning transaction commits.
	ContractCreated           = "contract:created"
	ContractStatusChanged     = "contract:status_changed"
	ContractExpirationWarning = "contract:expiration_warning"

	// Contract maintenance
	ContractExpiryRun = "contract:expiry:run"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
