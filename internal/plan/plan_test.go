package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestPlanBasic(t *testing.T) {
	dep := map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {},
		"D": {},
	}
	got, err := Plan(dep)
	if err != nil {
		t.Fatal(err)
	}
	want := []Cohort{{"C", "D"}, {"B"}, {"A"}}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("Plan() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanCycle(t *testing.T) {
	dep := map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}
	_, err := Plan(dep)
	if err == nil {
		t.Fatal("Plan() succeeded unexpectedly for a cyclic mapping")
	}
	var cyc *CyclicDependencyError
	if !asCyclic(err, &cyc) {
		t.Fatalf("Plan() error = %v, want *CyclicDependencyError", err)
	}
}

func TestPlanMissingKeysAreImplicitlySatisfied(t *testing.T) {
	// "external" is referenced as a prerequisite but never a key: it must
	// not block C from becoming ready, and must not appear in any cohort.
	dep := map[string][]string{
		"C": {"external"},
	}
	got, err := Plan(dep)
	if err != nil {
		t.Fatal(err)
	}
	want := []Cohort{{"C"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Plan() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanSingleBuilderNoDeps(t *testing.T) {
	dep := map[string][]string{"A": nil}
	got, err := Plan(dep)
	if err != nil {
		t.Fatal(err)
	}
	want := []Cohort{{"A"}}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("Plan() mismatch (-want +got):\n%s", diff)
	}
}

func TestAncestorsDeep(t *testing.T) {
	dep := map[string][]string{
		"A": {"B", "D"},
		"B": {"C", "E"},
		"C": {"D", "E"},
		"D": {},
		"E": {},
	}

	got, err := Ancestors("A", dep, true)
	if err != nil {
		t.Fatal(err)
	}
	if got[len(got)-1] != "A" {
		t.Fatalf("Ancestors(A) = %v, want to end with A", got)
	}
	pos := make(map[string]int, len(got))
	for i, n := range got {
		pos[n] = i
	}
	for _, edge := range [][2]string{{"A", "B"}, {"A", "D"}, {"B", "C"}, {"B", "E"}, {"C", "D"}, {"C", "E"}} {
		from, to := edge[0], edge[1]
		if pos[to] > pos[from] {
			t.Fatalf("Ancestors(A) = %v: %s must come before %s", got, to, from)
		}
	}

	gotE, err := Ancestors("E", dep, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"E"}
	if diff := cmp.Diff(want, gotE); diff != "" {
		t.Fatalf("Ancestors(E) mismatch (-want +got):\n%s", diff)
	}
}

func TestAncestorsExcludeSelf(t *testing.T) {
	dep := map[string][]string{
		"A": {"B"},
		"B": {},
	}
	got, err := Ancestors("A", dep, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"B"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Ancestors(A, includeSelf=false) mismatch (-want +got):\n%s", diff)
	}
}

func TestAncestorsUnknownBuilder(t *testing.T) {
	dep := map[string][]string{"A": {}}
	_, err := Ancestors("Z", dep, true)
	if err == nil {
		t.Fatal("Ancestors() succeeded unexpectedly for an unknown builder")
	}
	var unk *UnknownBuilderError
	if !asUnknown(err, &unk) {
		t.Fatalf("Ancestors() error = %v, want *UnknownBuilderError", err)
	}
}

func TestAncestorsCycle(t *testing.T) {
	dep := map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}
	_, err := Ancestors("A", dep, true)
	if err == nil {
		t.Fatal("Ancestors() succeeded unexpectedly for a cyclic mapping")
	}
	var cyc *CyclicDependencyError
	if !asCyclic(err, &cyc) {
		t.Fatalf("Ancestors() error = %v, want *CyclicDependencyError", err)
	}
}

func TestPlanTopologicalCorrectness(t *testing.T) {
	dep := map[string][]string{
		"web":    {"api", "assets"},
		"api":    {"db", "cache"},
		"assets": {},
		"db":     {},
		"cache":  {},
	}
	cohorts, err := Plan(dep)
	if err != nil {
		t.Fatal(err)
	}
	index := make(map[string]int)
	for i, c := range cohorts {
		for _, b := range c {
			index[b] = i
		}
	}
	for b, prereqs := range dep {
		for _, p := range prereqs {
			if index[p] >= index[b] {
				t.Fatalf("builder %s (cohort %d) must come after prerequisite %s (cohort %d)", b, index[b], p, index[p])
			}
		}
	}
}

func asCyclic(err error, target **CyclicDependencyError) bool {
	e, ok := err.(*CyclicDependencyError)
	if ok {
		*target = e
	}
	return ok
}

func asUnknown(err error, target **UnknownBuilderError) bool {
	e, ok := err.(*UnknownBuilderError)
	if ok {
		*target = e
	}
	return ok
}
