package route

import (
	"errors"
	"sync"
	"testing"

	"fleetroute/internal/model"
)

func TestSessionLastRequestWins(t *testing.T) {
	s := NewSession()

	seq1 := s.Begin()
	seq2 := s.Begin()
	if seq2 <= seq1 {
		t.Fatalf("sequence numbers must increase: %d then %d", seq1, seq2)
	}

	r1 := &model.OptimizedRoute{Mode: ModeFastest}
	r2 := &model.OptimizedRoute{Mode: ModeGreenest}

	// Request 2 completes first and is applied.
	if !s.Apply(seq2, r2, nil) {
		t.Fatal("newest request must be applied")
	}
	// Request 1 straggles in afterwards and is silently discarded.
	if s.Apply(seq1, r1, nil) {
		t.Fatal("superseded response must be discarded")
	}

	state, seq, rt, err := s.Latest()
	if state != StateSucceeded || err != nil {
		t.Fatalf("state: %s err: %v", state, err)
	}
	if seq != seq2 || rt.Mode != ModeGreenest {
		t.Fatalf("final state reflects wrong request: seq=%d mode=%s", seq, rt.Mode)
	}
}

func TestSessionStaleBeforeNewest(t *testing.T) {
	s := NewSession()
	seq1 := s.Begin()
	seq2 := s.Begin()

	// Even when the stale response arrives first, it never lands.
	if s.Apply(seq1, &model.OptimizedRoute{Mode: ModeFastest}, nil) {
		t.Fatal("stale response applied")
	}
	if !s.Apply(seq2, &model.OptimizedRoute{Mode: ModeCheapest}, nil) {
		t.Fatal("newest response rejected")
	}
	if s.Apply(seq2, &model.OptimizedRoute{Mode: ModeFastest}, nil) {
		t.Fatal("same response applied twice")
	}
}

func TestSessionFailureState(t *testing.T) {
	s := NewSession()
	if state, _, _, _ := s.Latest(); state != StateIdle {
		t.Fatalf("new session state: %s", state)
	}
	seq := s.Begin()
	if state, _, _, _ := s.Latest(); state != StateRequesting {
		t.Fatalf("after Begin: %s", state)
	}
	boom := errors.New("boom")
	if !s.Apply(seq, nil, boom) {
		t.Fatal("failure not applied")
	}
	state, _, _, err := s.Latest()
	if state != StateFailed || !errors.Is(err, boom) {
		t.Fatalf("state=%s err=%v", state, err)
	}
	// A new request leaves the failure behind.
	seq = s.Begin()
	if !s.Apply(seq, &model.OptimizedRoute{Mode: ModeBalanced}, nil) {
		t.Fatal("recovery not applied")
	}
	if state, _, _, _ := s.Latest(); state != StateSucceeded {
		t.Fatalf("after recovery: %s", state)
	}
}

func TestSessionConcurrentCompletions(t *testing.T) {
	s := NewSession()
	const n = 50
	seqs := make([]uint64, n)
	for i := range seqs {
		seqs[i] = s.Begin()
	}
	var wg sync.WaitGroup
	for i := range seqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Apply(seqs[i], &model.OptimizedRoute{Mode: ModeFastest}, nil)
		}(i)
	}
	wg.Wait()
	_, seq, _, _ := s.Latest()
	if seq != seqs[n-1] {
		t.Fatalf("applied seq %d, want newest %d", seq, seqs[n-1])
	}
}
