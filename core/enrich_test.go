package core

import (
	"testing"
	"time"
)

func TestEnrich_AssignsIDAndTimestamp(t *testing.T) {
	now := time.Now()
	msg := &EventMessage{Type: "user.created", Source: "user-service"}

	out := Enrich(msg, now)

	if out.ID == "" {
		t.Fatal("expected id to be assigned")
	}
	if !out.Timestamp.Equal(now) {
		t.Fatalf("expected timestamp %v, got %v", now, out.Timestamp)
	}
	if out.Metadata[MetaVersion] != SchemaVersion {
		t.Errorf("expected version %q, got %q", SchemaVersion, out.Metadata[MetaVersion])
	}
	if out.Metadata[MetaSchema] != "user.created" {
		t.Errorf("expected schema %q, got %q", "user.created", out.Metadata[MetaSchema])
	}
	if out.Metadata[MetaPublishedAt] == "" {
		t.Error("expected publishedAt to be set")
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	first := Enrich(&EventMessage{Type: "order.created"}, time.Now())

	second := Enrich(first, time.Now().Add(time.Hour))

	if second.ID != first.ID {
		t.Errorf("id regenerated on re-publish: %q != %q", second.ID, first.ID)
	}
	if !second.Timestamp.Equal(first.Timestamp) {
		t.Errorf("timestamp regenerated on re-publish: %v != %v", second.Timestamp, first.Timestamp)
	}
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	msg := &EventMessage{Type: "x", Metadata: map[string]string{"tenant": "a"}}

	out := Enrich(msg, time.Now())

	if msg.ID != "" || !msg.Timestamp.IsZero() {
		t.Error("input message was mutated")
	}
	if _, ok := msg.Metadata[MetaPublishedAt]; ok {
		t.Error("input metadata was mutated")
	}
	if out.Metadata["tenant"] != "a" {
		t.Error("caller metadata not merged")
	}
}

func TestEnrich_PreservesCallerMetadataOverFixedFields(t *testing.T) {
	msg := &EventMessage{Type: "x", Metadata: map[string]string{MetaVersion: "2.0"}}

	out := Enrich(msg, time.Now())

	if out.Metadata[MetaVersion] != "2.0" {
		t.Errorf("caller version overwritten: got %q", out.Metadata[MetaVersion])
	}
}
