package notification

import "testing"

func TestNotifyDrainDismiss(t *testing.T) {
	ns := NewNotificationService()
	a := ns.Notify(LevelSuccess, "Import complete", "3 inserted")
	ns.Notify(LevelError, "Import failed", "")
	if a.ID == "" {
		t.Fatal("empty id")
	}
	if !ns.Dismiss(a.ID) || ns.Dismiss(a.ID) {
		t.Fatal("Dismiss should succeed exactly once")
	}
	got := ns.Drain()
	if len(got) != 1 || got[0].Level != LevelError {
		t.Fatalf("Drain() = %+v", got)
	}
	if len(ns.GetNotifications()) != 0 {
		t.Fatal("queue not empty after Drain")
	}
}
