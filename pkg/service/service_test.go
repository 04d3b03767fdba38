package service

import (
	"context"
	"errors"
	"testing"
)

type testService struct {
	name  string
	trace *[]string
	err   error
}

func (s *testService) Run() { *s.trace = append(*s.trace, "run "+s.name) }
func (s *testService) Shutdown(context.Context) error {
	*s.trace = append(*s.trace, "stop "+s.name)
	return s.err
}

func TestGroupOrder(t *testing.T) {
	var trace []string
	g := Group{}
	g.Add(&testService{name: "a", trace: &trace}, nil, "not runnable", &testService{name: "b", trace: &trace})

	g.Start()
	if err := g.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	want := []string{"run a", "run b", "stop b", "stop a"}
	if len(trace) != len(want) {
		t.Fatalf("expected %v, got %v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Errorf("expected %v, got %v", want, trace)
			break
		}
	}
}

func TestGroupShutdownErrors(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	g := Group{}
	g.Add(
		&testService{name: "a", trace: &trace, err: boom},
		&testService{name: "b", trace: &trace, err: context.Canceled},
	)
	err := g.Shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if len(trace) != 2 {
		t.Errorf("expected every service to be stopped, got %v", trace)
	}
}
