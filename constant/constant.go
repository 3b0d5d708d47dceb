package constant

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCompleted  JobStatus = "COMPLETED"
)

type JobType string

const (
	JobTypeDreamPipeline JobType = "dream_pipeline"
)

const EntityTypeDream = "dream"

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

// StoreKind selects the backing store of the dream archive.
type StoreKind string

const (
	StoreKindLocal    StoreKind = "local"
	StoreKindMinIO    StoreKind = "minio"
	StoreKindSQLite   StoreKind = "sqlite"
	StoreKindPostgres StoreKind = "postgres"
)

type PipelineMode string

const (
	PipelineModeInline PipelineMode = "inline"
	PipelineModeQueue  PipelineMode = "queue"
)

const (
	DefaultEmoji         = "🎵"
	PlaceholderThumbnail = "/dreambackground1.png"
	UntitledDream        = "Untitled Dream"
	ProfileKey           = "dreamer_profile"
	DreamsKey            = "dreams"
)

const (
	MinAudioBytes = 1024
	MaxAudioBytes = 50 * 1024 * 1024
)

const (
	PipelineExchange      = "dream_exchange"
	PipelineQueue         = "dream_pipeline_queue"
	PipelineRoutingKey    = "dream.pipeline.request"
	PipelineDLX           = "dream_exchange_dlx"
	PipelineDLQ           = "dream_pipeline_queue_dlq"
	PipelineDLQRoutingKey = "dlq.dream.pipeline.request"
)
