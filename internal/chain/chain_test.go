package chain

import (
	"testing"
	"time"
)

type fakeRequest struct {
	name string
	done chan struct{}
}

func newFakeRequest(name string) *fakeRequest {
	return &fakeRequest{name: name, done: make(chan struct{})}
}

func (r *fakeRequest) BuilderName() string    { return r.name }
func (r *fakeRequest) Done() <-chan struct{} { return r.done }
func (r *fakeRequest) finish()                { close(r.done) }

func TestBuildWiresHeadAndNext(t *testing.T) {
	reqs := map[string]Request{
		"C": newFakeRequest("C"),
		"D": newFakeRequest("D"),
		"B": newFakeRequest("B"),
		"A": newFakeRequest("A"),
	}
	cohorts := [][]string{{"C", "D"}, {"B"}, {"A"}}
	c, err := Build(cohorts, reqs)
	if err != nil {
		t.Fatal(err)
	}
	if c.Head == nil {
		t.Fatal("Build() produced a nil head")
	}
	if got, want := c.Head.Cohort, []string{"C", "D"}; !equalStrings(got, want) {
		t.Fatalf("head cohort = %v, want %v", got, want)
	}
	if c.Head.Next == nil || !equalStrings(c.Head.Next.Cohort, []string{"B"}) {
		t.Fatalf("second node cohort = %v, want [B]", c.Head.Next.Cohort)
	}
	if c.Head.Next.Next == nil || !equalStrings(c.Head.Next.Next.Cohort, []string{"A"}) {
		t.Fatalf("third node cohort = %v, want [A]", c.Head.Next.Next.Cohort)
	}
	if c.Head.Next.Next.Next != nil {
		t.Fatalf("terminal node's Next = %v, want nil", c.Head.Next.Next.Next)
	}
}

func TestBuildMissingRequest(t *testing.T) {
	reqs := map[string]Request{"A": newFakeRequest("A")}
	_, err := Build([][]string{{"A", "B"}}, reqs)
	if err == nil {
		t.Fatal("Build() succeeded unexpectedly with a missing request")
	}
}

func TestFlattenRequestsOrder(t *testing.T) {
	reqs := map[string]Request{
		"C": newFakeRequest("C"),
		"D": newFakeRequest("D"),
		"B": newFakeRequest("B"),
		"A": newFakeRequest("A"),
	}
	c, err := Build([][]string{{"C", "D"}, {"B"}, {"A"}}, reqs)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, r := range c.FlattenRequests() {
		names = append(names, r.BuilderName())
	}
	want := []string{"C", "D", "B", "A"}
	if !equalStrings(names, want) {
		t.Fatalf("FlattenRequests() = %v, want %v", names, want)
	}
}

func TestCompletionSignalSingleton(t *testing.T) {
	r := newFakeRequest("A")
	n := &Node{Cohort: []string{"A"}, Requests: []Request{r}}
	if n.CompletionSignal() != r.Done() {
		t.Fatal("CompletionSignal() on a singleton node must be the request's own Done channel")
	}
}

func TestCompletionSignalConjunction(t *testing.T) {
	a := newFakeRequest("A")
	b := newFakeRequest("B")
	n := &Node{Cohort: []string{"A", "B"}, Requests: []Request{a, b}}

	sig := n.CompletionSignal()
	select {
	case <-sig:
		t.Fatal("CompletionSignal() fired before any request completed")
	case <-time.After(10 * time.Millisecond):
	}

	a.finish()
	select {
	case <-sig:
		t.Fatal("CompletionSignal() fired after only one of two requests completed")
	case <-time.After(10 * time.Millisecond):
	}

	b.finish()
	select {
	case <-sig:
	case <-time.After(time.Second):
		t.Fatal("CompletionSignal() never fired after all requests completed")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
