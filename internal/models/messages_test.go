package models

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestFlexBytesBase64(t *testing.T) {
	var b FlexBytes
	if err := json.Unmarshal([]byte(`"aGVsbG8="`), &b); err != nil {
		t.Fatalf("unmarshal base64: %v", err)
	}
	if !bytes.Equal(b, []byte("hello")) {
		t.Errorf("got %q, want %q", b, "hello")
	}
}

func TestFlexBytesIntArray(t *testing.T) {
	var b FlexBytes
	if err := json.Unmarshal([]byte(`[104,101,108,108,111]`), &b); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if !bytes.Equal(b, []byte("hello")) {
		t.Errorf("got %q, want %q", b, "hello")
	}
}

func TestFlexBytesSignedValues(t *testing.T) {
	// Jackson emits byte[] entries as signed ints, so -119 means 0x89.
	var b FlexBytes
	if err := json.Unmarshal([]byte(`[-119,80,78,71]`), &b); err != nil {
		t.Fatalf("unmarshal signed array: %v", err)
	}
	want := []byte{0x89, 'P', 'N', 'G'}
	if !bytes.Equal(b, want) {
		t.Errorf("got %v, want %v", []byte(b), want)
	}
}

func TestFlexBytesNull(t *testing.T) {
	var b FlexBytes
	if err := json.Unmarshal([]byte(`null`), &b); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil bytes, got %v", []byte(b))
	}
}

func TestFlexBytesRejectsOtherEncodings(t *testing.T) {
	var b FlexBytes
	if err := json.Unmarshal([]byte(`42`), &b); err == nil {
		t.Error("expected error for numeric payload")
	}
	if err := json.Unmarshal([]byte(`"not base64!!"`), &b); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestFlexBytesMarshalRoundTrip(t *testing.T) {
	in := FlexBytes{0x89, 'P', 'N', 'G'}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out FlexBytes
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("round trip changed bytes: %v -> %v", []byte(in), []byte(out))
	}
}

func TestJobDecodesBothImageForms(t *testing.T) {
	base64Form := `{"clothId":"abc","userId":7,"imageBytes":"aGk=","imageType":"FULL_BODY","retryCount":2,"timestamp":1710000000000}`
	arrayForm := `{"clothId":"abc","userId":7,"imageBytes":[104,105],"imageType":"FULL_BODY","retryCount":2,"timestamp":1710000000000}`

	for _, payload := range []string{base64Form, arrayForm} {
		var job Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			t.Fatalf("unmarshal job: %v", err)
		}
		if job.ClothID != "abc" || job.UserID != 7 {
			t.Errorf("identity fields wrong: %+v", job)
		}
		if !bytes.Equal(job.ImageBytes, []byte("hi")) {
			t.Errorf("image bytes wrong: %v", []byte(job.ImageBytes))
		}
		if job.RetryCount != 2 || job.Timestamp != 1710000000000 {
			t.Errorf("envelope fields wrong: %+v", job)
		}
	}
}
