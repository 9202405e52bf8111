package kafka_client

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

type KafkaConfig struct {
	Broker          string
	GroupID         string
	RequestTopic    string
	ResponseTopic   string
	TransactionalID string
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func GetKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Broker:          getEnv("KAFKA_BROKER", "localhost:29092"),
		GroupID:         getEnv("KAFKA_CONSUMER_GROUP_ID", "sentiscope-workers"),
		RequestTopic:    getEnv("KAFKA_REQUEST_TOPIC", KAFKA_TOPIC_NLP_REQUESTS),
		ResponseTopic:   getEnv("KAFKA_RESPONSE_TOPIC", KAFKA_TOPIC_NLP_RESPONSES),
		TransactionalID: getEnv("KAFKA_TRANSACTIONAL_ID", "sentiscope-producer-"+shortID()),
	}
}

// ResponseGroupID returns a consumer group unique to this process. Every
// gateway has to see every response, since only the instance that submitted a
// request holds its waiter.
func (c KafkaConfig) ResponseGroupID() string {
	return c.GroupID + "-gateway-" + shortID()
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
