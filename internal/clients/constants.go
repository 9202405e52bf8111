package clients

import "time"

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 500 * time.Millisecond
	MAX_BACKOFF     = 8 * time.Second
	USER_AGENT      = "sentiscope-client/1.0 (+https://github.com/spacesedan/sentiscope)"
)

const (
	SOURCE_HOSTED     = "hosted"
	SOURCE_SELFHOSTED = "selfhosted"
	SOURCE_LOCAL      = "local"
	SOURCE_OPENAI     = "openai"
)

// Generation bounds sent with summarization requests.
const (
	SUMMARY_MAX_LENGTH = 130
	SUMMARY_MIN_LENGTH = 30
	EMOTION_TOP_K      = 5
)
