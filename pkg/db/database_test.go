package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsWithDefaults(t *testing.T) {
	t.Parallel()

	t.Run("zero values filled", func(t *testing.T) {
		t.Parallel()

		o := Options{}.withDefaults()
		assert.Equal(t, defaultMaxOpenConns, o.MaxOpenConns)
		assert.Equal(t, defaultMaxIdleConns, o.MaxIdleConns)
		assert.Equal(t, defaultConnMaxLifetime, o.ConnMaxLifetime)
		assert.Equal(t, defaultConnMaxIdleTime, o.ConnMaxIdleTime)
	})

	t.Run("explicit values kept", func(t *testing.T) {
		t.Parallel()

		o := Options{
			MaxOpenConns:    3,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Minute,
			ConnMaxIdleTime: time.Second,
		}.withDefaults()
		assert.Equal(t, 3, o.MaxOpenConns)
		assert.Equal(t, 1, o.MaxIdleConns)
		assert.Equal(t, time.Minute, o.ConnMaxLifetime)
		assert.Equal(t, time.Second, o.ConnMaxIdleTime)
	})
}

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	gdb, err := Open(context.Background(), "", Options{})
	assert.Nil(t, gdb)
	assert.Error(t, err)
}
