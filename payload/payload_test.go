package payload

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

func samplePayload(t *testing.T) ClaimPayload {
	t.Helper()

	user, err := solana.PublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	if err != nil {
		t.Fatalf("Failed to parse sample user key: %v", err)
	}

	p := ClaimPayload{
		User:      user,
		Day:       20301,
		ExpiresAt: 1753996800,
	}
	for i := range p.SessionHash {
		p.SessionHash[i] = byte(i)
	}
	for i := range p.Nonce {
		p.Nonce[i] = byte(0xA0 + i)
	}
	return p
}

func TestEncodeIsExactly100Bytes(t *testing.T) {
	buf := samplePayload(t).Encode()
	if len(buf) != Size {
		t.Fatalf("Expected %d byte payload, got %d", Size, len(buf))
	}
	if !bytes.Equal(buf[:4], []byte("CPv1")) {
		t.Errorf("Payload does not start with the CPv1 tag: %q", buf[:4])
	}
}

func TestRoundTrip(t *testing.T) {
	original := samplePayload(t)

	buf := original.Encode()
	decoded, err := Decode(buf[:])
	if err != nil {
		t.Fatalf("Decode failed on a freshly encoded payload: %v", err)
	}

	if decoded != original {
		t.Errorf("Round trip mismatch:\n  in:  %+v\n  out: %+v", original, decoded)
	}
}

func TestRoundTripNegativeIntegers(t *testing.T) {
	p := samplePayload(t)
	p.Day = -1
	p.ExpiresAt = -86400

	buf := p.Encode()
	decoded, err := Decode(buf[:])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Day != -1 || decoded.ExpiresAt != -86400 {
		t.Errorf("Signed integers did not survive the round trip: %+v", decoded)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	p := samplePayload(t)
	first := p.Encode()
	second := p.Encode()
	if first != second {
		t.Error("Two encodes of the same payload produced different bytes")
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 99, 101, 200} {
		_, err := Decode(make([]byte, n))
		if !reasoncodes.Is(err, reasoncodes.ErrMalformedPayload) {
			t.Errorf("Length %d: expected MalformedPayload, got %v", n, err)
		}
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := samplePayload(t).Encode()
	buf[0] = 'X'

	_, err := Decode(buf[:])
	if !reasoncodes.Is(err, reasoncodes.ErrMalformedPayload) {
		t.Errorf("Expected MalformedPayload for bad magic, got %v", err)
	}
}

func TestLittleEndianLayout(t *testing.T) {
	p := samplePayload(t)
	p.Day = 0x0102030405060708

	buf := p.Encode()
	// day lives at offset 36, least significant byte first
	if buf[36] != 0x08 || buf[43] != 0x01 {
		t.Errorf("Day field is not little-endian: % x", buf[36:44])
	}
}
