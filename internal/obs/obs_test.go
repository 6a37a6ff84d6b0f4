package obs_test

import (
	"errors"
	"testing"
	"time"

	"github.com/webitel/reactor-plant/internal/obs"
	"github.com/webitel/reactor-plant/internal/plant"
)

func TestStatsRecorderRecordsSuccessAndFailure(t *testing.T) {
	providers := obs.NewProviders()
	defer providers.Shutdown()

	recorder, err := obs.NewStatsRecorder(providers.Tracer.Tracer("test"), providers.Meter.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	recorder.Record(plant.ReactionStatistics{
		ReactionID: 1,
		Label:      "demo",
		Stats: plant.TaskStats{
			StartTime:  start,
			FinishTime: start.Add(5 * time.Millisecond),
		},
	})
	recorder.Record(plant.ReactionStatistics{
		ReactionID: 2,
		Label:      "demo-failure",
		Stats: plant.TaskStats{
			StartTime:  start,
			FinishTime: start.Add(5 * time.Millisecond),
			Exception:  errors.New("boom"),
		},
	})
}

func TestNewLoggerBuildsTextAndJSON(t *testing.T) {
	if l := obs.NewLogger("text", 0); l == nil {
		t.Fatal("expected non-nil logger for text format")
	}
	if l := obs.NewLogger("json", 0); l == nil {
		t.Fatal("expected non-nil logger for json format")
	}
}
