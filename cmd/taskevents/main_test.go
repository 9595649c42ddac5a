package main

import (
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestHandleTaskEvent(t *testing.T) {
	log.SetOutput(io.Discard)

	err := handleTaskEvent(amqp.Delivery{Body: []byte(`{"event":"task.created","taskId":"t1","userId":"u1"}`)})
	assert.NoError(t, err)

	assert.Error(t, handleTaskEvent(amqp.Delivery{Body: []byte(`not json`)}))
	assert.Error(t, handleTaskEvent(amqp.Delivery{Body: []byte(`{"event":""}`)}))
}
