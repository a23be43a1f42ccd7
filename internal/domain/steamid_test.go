package domain

import "testing"

func TestSteamIDAccountType(t *testing.T) {
	user := NewSteamID(12345, AccountTypeIndividual)
	if user.AccountType() != AccountTypeIndividual {
		t.Fatalf("expected individual, got %d", user.AccountType())
	}
	if user.IsClan() {
		t.Fatal("individual id reported as clan")
	}
	if uint64(user) != 76561197960278073 {
		t.Fatalf("unexpected 64-bit id %d", uint64(user))
	}

	group := NewSteamID(42, AccountTypeClan)
	if !group.IsClan() {
		t.Fatalf("expected clan, got %d", group.AccountType())
	}
}

func TestParseSteamID(t *testing.T) {
	id, err := ParseSteamID(" 76561197960278073 ")
	if err != nil {
		t.Fatalf("ParseSteamID failed: %v", err)
	}
	if id.String() != "76561197960278073" {
		t.Fatalf("unexpected round trip %q", id.String())
	}
	if _, err := ParseSteamID("nope"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseInventoryContext(t *testing.T) {
	tests := []struct {
		raw     string
		want    InventoryContext
		wantErr bool
	}{
		{raw: "440/2", want: InventoryContext{AppID: 440, ContextID: 2}},
		{raw: "753/6", want: InventoryContext{AppID: 753, ContextID: 6}},
		{raw: "730", want: InventoryContext{AppID: 730, ContextID: 2}},
		{raw: "x/2", wantErr: true},
		{raw: "440/y", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseInventoryContext(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %+v want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestSentryHash(t *testing.T) {
	if SentryHash(nil) != nil {
		t.Fatal("empty blob must not produce a hash")
	}
	s := NewSentry("bot", []byte("abc"))
	if len(s.Hash) != 20 {
		t.Fatalf("expected 20-byte sha1, got %d", len(s.Hash))
	}
}
