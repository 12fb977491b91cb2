package config

const (
	// TopicIngestTask is the NSQ topic for ingestion run requests.
	TopicIngestTask = "kb.ingest.task"
)
