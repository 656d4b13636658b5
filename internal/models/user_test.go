package models

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCloneIsIndependent(t *testing.T) {
	now := time.Now()
	u := &User{ID: 1, Email: "a@b.com", Age: intPtr(30), Location: strPtr("Oslo"), CreatedAt: &now}
	c := u.Clone()

	*c.Age = 99
	*c.Location = "Bergen"
	if *u.Age != 30 || *u.Location != "Oslo" {
		t.Fatalf("clone aliases the original: %+v", u)
	}
}

func TestCloneNil(t *testing.T) {
	var u *User
	if u.Clone() != nil {
		t.Fatalf("nil clone should stay nil")
	}
}

func TestMergeKeepsAbsentFields(t *testing.T) {
	base := &User{ID: 1, Email: "a@b.com", Age: intPtr(30), Gender: strPtr("f")}
	src := &User{ID: 1, Email: "a@b.com", Location: strPtr("Oslo")}

	m := Merge(base, src)
	if m.Age == nil || *m.Age != 30 {
		t.Fatalf("age should survive a partial response: %+v", m)
	}
	if m.Gender == nil || *m.Gender != "f" {
		t.Fatalf("gender should survive a partial response: %+v", m)
	}
	if m.Location == nil || *m.Location != "Oslo" {
		t.Fatalf("location should be taken from the response: %+v", m)
	}
}

func TestMergeNilSides(t *testing.T) {
	u := &User{ID: 1, Email: "a@b.com"}
	if got := Merge(nil, u); got == nil || got.Email != "a@b.com" {
		t.Fatalf("merge onto nil base should adopt src")
	}
	if got := Merge(u, nil); got == nil || got.Email != "a@b.com" {
		t.Fatalf("merge of nil src should keep base")
	}
}
