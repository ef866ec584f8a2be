package domain

import (
	"testing"
	"time"
)

func TestInstanceStatus_IsTerminal(t *testing.T) {
	terminal := []InstanceStatus{InstanceCompleted, InstanceRejected, InstanceCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if InstanceInProgress.IsTerminal() {
		t.Error("IN_PROGRESS should not be terminal")
	}
}

func TestChildEdgeStatus_MirrorInstanceStatus(t *testing.T) {
	tests := []struct {
		name  string
		edge  ChildEdgeStatus
		child InstanceStatus
		want  ChildEdgeStatus
	}{
		{"completed maps to completed", ChildEdgeActive, InstanceCompleted, ChildEdgeCompleted},
		{"cancelled maps to cancelled", ChildEdgeActive, InstanceCancelled, ChildEdgeCancelled},
		{"rejected maps to failed", ChildEdgeActive, InstanceRejected, ChildEdgeFailed},
		{"pending becomes active on in-progress", ChildEdgePending, InstanceInProgress, ChildEdgeActive},
		{"active stays active on in-progress", ChildEdgeActive, InstanceInProgress, ChildEdgeActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.edge.MirrorInstanceStatus(tt.child); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestChildProcessInstance_ApplyChildStatus(t *testing.T) {
	now := time.Now()
	edge := &ChildProcessInstance{Status: ChildEdgeActive}

	if !edge.ApplyChildStatus(InstanceCompleted, now) {
		t.Fatal("first apply should report a change")
	}
	if edge.Status != ChildEdgeCompleted {
		t.Errorf("status should be COMPLETED, got %s", edge.Status)
	}
	if edge.CompletedAt == nil {
		t.Error("CompletedAt should be stamped on terminal status")
	}

	// Повторный вызов без изменения дочернего статуса — no-op
	if edge.ApplyChildStatus(InstanceCompleted, now.Add(time.Hour)) {
		t.Error("second apply with same child status should be a no-op")
	}
}

func TestProcessInstance_MergeFormData(t *testing.T) {
	p := &ProcessInstance{}

	p.MergeFormData(map[string]any{"amount": 500, "note": "a"})
	p.MergeFormData(map[string]any{"note": "b"})

	if p.FormData["amount"] != 500 {
		t.Errorf("amount should survive merge, got %v", p.FormData["amount"])
	}
	if p.FormData["note"] != "b" {
		t.Errorf("later value should win, got %v", p.FormData["note"])
	}

	// nil merge не должен паниковать и не должен создавать карту
	var q ProcessInstance
	q.MergeFormData(nil)
	if q.FormData != nil {
		t.Error("merge of nil should not allocate form data")
	}
}

func TestInstanceCode(t *testing.T) {
	if got := InstanceCode(2026, 42); got != "PRC-2026-00042" {
		t.Errorf("unexpected code %q", got)
	}
	if got := ChildCode("PRC-2026-00042", 3); got != "PRC-2026-00042-SUB-03" {
		t.Errorf("unexpected child code %q", got)
	}
}

func TestStep_MinRequiredAttachments(t *testing.T) {
	s := &Step{RequireAttachment: false, MinAttachments: 5}
	if got := s.MinRequiredAttachments(); got != 0 {
		t.Errorf("no requirement should mean 0, got %d", got)
	}

	s = &Step{RequireAttachment: true}
	if got := s.MinRequiredAttachments(); got != 1 {
		t.Errorf("require without min should mean 1, got %d", got)
	}

	s = &Step{RequireAttachment: true, MinAttachments: 2}
	if got := s.MinRequiredAttachments(); got != 2 {
		t.Errorf("explicit min should win, got %d", got)
	}
}
