// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package attention

import (
	"sync"
	"testing"

	"github.com/tomtom215/proctorlens/internal/models"
)

func TestState_EmptyBeforePublish(t *testing.T) {
	s := NewState()
	if _, ok := s.Current(); ok {
		t.Error("Current() ok = true before any publish")
	}
}

func TestState_PublishMonotonic(t *testing.T) {
	s := NewState()

	tests := []struct {
		seq     uint64
		score   float64
		want    bool
		wantSeq uint64
	}{
		{seq: 1, score: 0.1, want: true, wantSeq: 1},
		{seq: 3, score: 0.3, want: true, wantSeq: 3},
		{seq: 2, score: 0.2, want: false, wantSeq: 3},
		{seq: 3, score: 0.9, want: false, wantSeq: 3},
		{seq: 4, score: 0.4, want: true, wantSeq: 4},
	}
	for _, tt := range tests {
		if got := s.Publish(tt.seq, score(tt.score)); got != tt.want {
			t.Errorf("Publish(%d) = %v, want %v", tt.seq, got, tt.want)
		}
		p, _ := s.Current()
		if p.Sequence != tt.wantSeq {
			t.Errorf("after Publish(%d): Sequence = %d, want %d", tt.seq, p.Sequence, tt.wantSeq)
		}
	}
}

func TestState_ReplacesWholesale(t *testing.T) {
	s := NewState()
	face := true
	level := "high"
	s.Publish(1, &models.AttentionMetrics{FaceDetected: &face, AttentionLevel: &level})
	s.Publish(2, score(0.4))

	p, _ := s.Current()
	if p.Metrics.FaceDetected != nil || p.Metrics.AttentionLevel != nil {
		t.Errorf("fields from the previous snapshot leaked: %+v", p.Metrics)
	}
	if p.Metrics.AttentionScore == nil || *p.Metrics.AttentionScore != 0.4 {
		t.Errorf("AttentionScore = %v, want 0.4", p.Metrics.AttentionScore)
	}
}

func TestState_SnapshotsAreIsolated(t *testing.T) {
	s := NewState()
	m := score(0.5)
	s.Publish(1, m)

	*m.AttentionScore = 0.0
	p, _ := s.Current()
	if *p.Metrics.AttentionScore != 0.5 {
		t.Fatalf("producer mutation visible: %v", *p.Metrics.AttentionScore)
	}

	*p.Metrics.AttentionScore = 0.1
	again, _ := s.Current()
	if *again.Metrics.AttentionScore != 0.5 {
		t.Errorf("reader mutation visible: %v", *again.Metrics.AttentionScore)
	}
}

func TestState_OnPublish(t *testing.T) {
	s := NewState()
	var got []uint64
	s.OnPublish(func(p Published) { got = append(got, p.Sequence) })

	s.Publish(1, score(0.1))
	s.Publish(1, score(0.2))
	s.Publish(2, score(0.3))

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("observed %v, want [1 2]", got)
	}
}

func TestState_ConcurrentReaders(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= 500; i++ {
			s.Publish(i, score(float64(i)))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for i := 0; i < 500; i++ {
				p, ok := s.Current()
				if !ok {
					continue
				}
				if p.Sequence < last {
					t.Errorf("sequence went backwards: %d after %d", p.Sequence, last)
					return
				}
				if uint64(*p.Metrics.AttentionScore) != p.Sequence {
					t.Errorf("torn snapshot: seq %d score %v", p.Sequence, *p.Metrics.AttentionScore)
					return
				}
				last = p.Sequence
			}
		}()
	}
	wg.Wait()
}
