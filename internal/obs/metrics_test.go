package obs

import (
	"testing"
	"time"
)

var _ MetricsCollector = NoopMetricsCollector{}

func TestNoopMetricsCollectorNeverPanics(t *testing.T) {
	var c MetricsCollector = NoopMetricsCollector{}
	c.RecordInsert(time.Millisecond, nil)
	c.RecordDelete(time.Millisecond, nil)
	c.RecordSearch(10, time.Millisecond, nil)
	c.RecordPut(time.Millisecond, nil)
	c.RecordGet(time.Millisecond, nil)
	c.RecordCheckpoint(time.Millisecond, nil)
	c.RecordConnection(true)
	c.RecordConnection(false)
}
