package simbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/distr1/buildset"
)

func TestBuilderFinishesSubmittedRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New(ctx, "unit", 2)
	b.MinDelay = time.Millisecond
	b.MaxDelay = 2 * time.Millisecond

	req := buildset.NewBuildRequest("unit", "test", buildset.SourceStamp{}, nil)
	b.SubmitBuildRequest(req)

	select {
	case <-req.Done():
	case <-time.After(time.Second):
		t.Fatal("request never finished")
	}
	if got := req.Result(); got != buildset.SUCCESS {
		t.Fatalf("Result() = %v, want SUCCESS", got)
	}
}

func TestBuilderHonorsFailNames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New(ctx, "unit", 1)
	b.MinDelay = time.Millisecond
	b.MaxDelay = 2 * time.Millisecond
	b.FailNames = map[string]bool{"unit": true}

	req := buildset.NewBuildRequest("unit", "test", buildset.SourceStamp{}, nil)
	b.SubmitBuildRequest(req)

	select {
	case <-req.Done():
	case <-time.After(time.Second):
		t.Fatal("request never finished")
	}
	if got := req.Result(); got != buildset.FAILURE {
		t.Fatalf("Result() = %v, want FAILURE", got)
	}
}

func TestBuilderFinishesWithExceptionAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := New(ctx, "unit", 1)
	cancel()

	req := buildset.NewBuildRequest("unit", "test", buildset.SourceStamp{}, nil)
	b.SubmitBuildRequest(req)

	select {
	case <-req.Done():
	case <-time.After(time.Second):
		t.Fatal("request never finished")
	}
	if got := req.Result(); got != buildset.EXCEPTION {
		t.Fatalf("Result() = %v, want EXCEPTION", got)
	}
}
