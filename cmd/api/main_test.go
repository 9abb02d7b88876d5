package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"SERVER_ADDR", "CATALOG_PATH", "KAFKA_BROKERS", "MONGODB_DATABASE", "TRACING_ENABLED", "CLASSIFY_FALLBACK_INBOUND"} {
		t.Setenv(key, "")
	}

	config := loadConfig()

	assert.Equal(t, ":8030", config.ServerAddr)
	assert.Empty(t, config.CatalogPath)
	assert.Equal(t, []string{"localhost:9092"}, config.Kafka.Brokers)
	assert.Equal(t, "box_tracking", config.MongoDB.Database)
	assert.True(t, config.TracingEnabled)
	assert.True(t, config.FallbackToInbound)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("CATALOG_PATH", "/etc/floor/catalog.yaml")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("TRACING_ENABLED", "false")
	t.Setenv("CLASSIFY_FALLBACK_INBOUND", "false")

	config := loadConfig()

	assert.Equal(t, ":9000", config.ServerAddr)
	assert.Equal(t, "/etc/floor/catalog.yaml", config.CatalogPath)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Kafka.Brokers)
	assert.False(t, config.TracingEnabled)
	assert.False(t, config.FallbackToInbound)
}
