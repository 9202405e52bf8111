package kafka_client

import "time"

const (
	KAFKA_TOPIC_NLP_REQUESTS  = "nlp-requests"  // {id, task, text} envelopes for workers
	KAFKA_TOPIC_NLP_RESPONSES = "nlp-responses" // {id, status, result|error} envelopes for gateways
)

const (
	MAX_RETRIES      = 5
	RETRY_DELAY      = 2 * time.Second
	POLL_TIMEOUT     = 500 * time.Millisecond
	FLUSH_TIMEOUT_MS = 5000
)
