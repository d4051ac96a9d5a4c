package watch_test

import (
	"time"

	"testing"

	"github.com/distr1/buildset"
	"github.com/distr1/buildset/watch"
)

type autoBuilder struct {
	name   string
	result buildset.Result
}

func (b *autoBuilder) Name() string { return b.name }

func (b *autoBuilder) SubmitBuildRequest(req *buildset.BuildRequest) {
	req.Finish(b.result)
}

func TestRecorderObservesSimultaneousSuccess(t *testing.T) {
	status := buildset.NewStatus()
	rec := &watch.Recorder{}
	status.AddWatcher(rec)

	bs := buildset.NewBuildSet(buildset.SourceStamp{Revision: "cafef00d"}, "test", nil, status, nil)
	builders := map[string]buildset.Builder{
		"a": &autoBuilder{name: "a", result: buildset.SUCCESS},
		"b": &autoBuilder{name: "b", result: buildset.SUCCESS},
	}
	if err := bs.StartSimultaneous(builders); err != nil {
		t.Fatal(err)
	}

	select {
	case <-bs.WaitUntilFinished():
	case <-time.After(time.Second):
		t.Fatal("never finished")
	}

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("Events() = %v, want 2 entries (success, finished)", events)
	}
	if events[0].Kind != "success" || events[0].Result != buildset.SUCCESS {
		t.Fatalf("events[0] = %+v, want success/SUCCESS", events[0])
	}
	if events[1].Kind != "finished" || events[1].Result != buildset.SUCCESS {
		t.Fatalf("events[1] = %+v, want finished/SUCCESS", events[1])
	}
}

func TestRecorderObservesHopeLostBeforeFinished(t *testing.T) {
	status := buildset.NewStatus()
	rec := &watch.Recorder{}
	status.AddWatcher(rec)

	bs := buildset.NewBuildSet(buildset.SourceStamp{Revision: "cafef00d"}, "test", nil, status, nil)
	builders := map[string]buildset.Builder{
		"a": &autoBuilder{name: "a", result: buildset.FAILURE},
		"b": &autoBuilder{name: "b", result: buildset.SUCCESS},
	}
	if err := bs.StartSimultaneous(builders); err != nil {
		t.Fatal(err)
	}

	select {
	case <-bs.WaitUntilFinished():
	case <-time.After(time.Second):
		t.Fatal("never finished")
	}

	events := rec.Events()
	if len(events) != 3 {
		t.Fatalf("Events() = %v, want 3 entries (hope_lost, success, finished)", events)
	}
	if events[0].Kind != "hope_lost" {
		t.Fatalf("events[0].Kind = %q, want hope_lost", events[0].Kind)
	}
	if events[1].Kind != "success" || events[1].Result != buildset.FAILURE {
		t.Fatalf("events[1] = %+v, want success/FAILURE", events[1])
	}
	if events[2].Kind != "finished" || events[2].Result != buildset.FAILURE {
		t.Fatalf("events[2] = %+v, want finished/FAILURE", events[2])
	}
}
