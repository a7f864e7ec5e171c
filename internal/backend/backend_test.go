package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "postgres", DatabaseURL: "postgres://localhost/fintrack", AMQPExchange: "fintrack", AMQPQueue: "ledger_events"}

	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, PostgresBackend, bc.Type)
	assert.Equal(t, "postgres://localhost/fintrack", bc.DatabaseURL)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "x"}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() = %v", err)
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	result, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)

	assert.Nil(t, result.Publisher)
	assert.NoError(t, result.Close())

	cats, err := result.Store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cats)
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")

	result, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	defer result.Close()

	require.NoError(t, result.Store.Ping(context.Background()))
	methods, err := result.Store.ListPaymentMethods(context.Background())
	require.NoError(t, err)
	assert.Len(t, methods, 5)
}

func TestAMQPFailureIsNotFatal(t *testing.T) {
	f := NewFactory(nil)
	f.dialAMQP = func(string, string, string) (*amqp.Client, error) {
		return nil, errors.New("connection refused")
	}

	result, err := f.CreateBackend(context.Background(), Config{
		Type:         MemoryBackend,
		AMQPURL:      "amqp://localhost:5672/",
		AMQPExchange: "fintrack",
		AMQPQueue:    "ledger_events",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Publisher, "publisher must be a nil interface when AMQP is down")
}
