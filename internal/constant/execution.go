package constant

const (
	DevelopmentEnvironment = "development"
	ProductionEnvironment  = "production"
)

const (
	ExecutionStreamName       = "execution"
	ExecutionStreamSubjectAll = "execution.>"

	// ExecutionSubjectEvents carries inbound catalog events from venue
	// and strategy producers.
	ExecutionSubjectEvents    = "execution.events.ingest"
	ExecutionSubjectEventsDLQ = "execution.events.dlq"

	ExecutionSubjectPositionAll    = "execution.position.*"
	ExecutionSubjectPositionOpen   = "execution.position.opened"
	ExecutionSubjectPositionChange = "execution.position.changed"
	ExecutionSubjectPositionClose  = "execution.position.closed"

	ExecutionQueueName  = "execution_queue"
	ExecutionQueueGroup = "execution_group"
)

const (
	ExecutionDatabaseName = "execution"

	PositionSnapshotKeyPrefix = "execore:position:"
	OpenPositionSetKey        = "execore:positions:open"
)
