package netservice

import "testing"

func TestDeduplicatorFirstPacketNeverDuplicate(t *testing.T) {
	var d Deduplicator
	if d.IsDuplicate(5) {
		t.Fatal("empty deduplicator should report nothing as duplicate")
	}
	d.AddPacket(5)
	if !d.IsDuplicate(5) {
		t.Fatal("expected 5 to be a duplicate after being added")
	}
}

func TestDeduplicatorSlidesWindowForward(t *testing.T) {
	var d Deduplicator
	for i := uint16(0); i < 10; i++ {
		d.AddPacket(i)
	}
	for i := uint16(0); i < 10; i++ {
		if !d.IsDuplicate(i) {
			t.Fatalf("expected %d to be duplicate", i)
		}
	}
	if d.IsDuplicate(10) {
		t.Fatal("10 was never added, should not be duplicate")
	}
	d.AddPacket(10)
	if !d.IsDuplicate(10) {
		t.Fatal("expected 10 to be duplicate after add")
	}
}

func TestDeduplicatorForgetsOldPacketsOutsideWindow(t *testing.T) {
	var d Deduplicator
	d.AddPacket(0)
	d.AddPacket(300) // shift window forward by 300, id 0 falls out of the 256-wide window
	if d.IsDuplicate(0) {
		t.Fatal("expected id 0 to have aged out of the window")
	}
	if !d.IsDuplicate(300) {
		t.Fatal("expected 300 (the newest) to be a duplicate")
	}
}

func TestDeduplicatorOutOfOrderWithinWindow(t *testing.T) {
	var d Deduplicator
	d.AddPacket(100)
	d.AddPacket(90) // older, but still inside the 256 window
	if !d.IsDuplicate(90) {
		t.Fatal("expected 90 to be recorded as seen")
	}
	if !d.IsDuplicate(100) {
		t.Fatal("expected 100 to remain the newest seen")
	}
}
