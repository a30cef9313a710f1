package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rvi-ar/casos-api/models"
)

func TestHub_DropsSlowClient(t *testing.T) {
	h := NewHub()
	slow := h.register()
	fast := h.register()

	for i := 0; i < feedBufferSize; i++ {
		h.Publish(models.CaseEvent{Type: "case.updated"})
		<-fast.send
	}
	assert.Equal(t, 2, h.Len())

	h.Publish(models.CaseEvent{Type: "case.updated"})
	assert.Equal(t, 1, h.Len())

	// the dropped client's channel is drained then closed
	for range slow.send {
	}
	ev, ok := <-fast.send
	assert.True(t, ok)
	assert.Equal(t, "case.updated", ev.Type)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	h := NewHub()
	c := h.register()
	h.unregister(c)
	h.unregister(c)
	assert.Zero(t, h.Len())
}
