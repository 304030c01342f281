package ws

import "testing"

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(nil)

	hub.AddClient(1, nil, ConnInfo{UserID: 7})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected channel room to be created")
	}
	if hub.ActiveForUser(7) != 1 {
		t.Fatalf("expected one active connection for user")
	}

	hub.RemoveClient(1, nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected channel room to be removed")
	}
	if hub.ActiveForUser(7) != 0 {
		t.Fatalf("expected no active connections for user")
	}
}

func TestHubCountsConnectionsPerUser(t *testing.T) {
	hub := NewHub(nil)

	hub.AddClient(1, nil, ConnInfo{UserID: 7})
	hub.AddClient(2, nil, ConnInfo{UserID: 7})
	if hub.ActiveForUser(7) != 2 {
		t.Fatalf("expected two active connections for user")
	}

	hub.RemoveClient(1, nil)
	if hub.ActiveForUser(7) != 1 {
		t.Fatalf("expected one remaining connection for user")
	}
}
