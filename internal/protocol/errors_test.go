package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	for code := range knownCodes {
		if !IsKnownCode(code) {
			t.Fatalf("%s not recognized", code)
		}
	}
	if !IsKnownCode("") {
		t.Fatal("empty code should pass")
	}
	if IsKnownCode("E_MADE_UP") {
		t.Fatal("unknown code accepted")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"CONTROL","protocol_version":"1.0","action":"pause"}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.Type != TypeControl {
		t.Fatalf("type = %s", m.Type)
	}
	if _, err := DecodeBase([]byte(`{`)); err == nil {
		t.Fatal("malformed json accepted")
	}
}
