package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

func TestQueueForUrgency(t *testing.T) {
	assert.Equal(t, "critical", queueForUrgency(model.UrgencyCritical))
	assert.Equal(t, "critical", queueForUrgency(model.UrgencyHigh))
	assert.Equal(t, "default", queueForUrgency(model.UrgencyNormal))
	assert.Equal(t, "low", queueForUrgency(model.UrgencyLow))
	assert.Equal(t, "default", queueForUrgency(model.Urgency("")))
}
