package store

import (
	"reflect"
	"testing"
	"time"
)

func TestMarshalFailures(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"nil", nil, `[]`},
		{"keeps order", []string{"z", "a"}, `["z","a"]`},
		{"escapes", []string{`say "hi"`}, `["say \"hi\""]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalFailures(tt.in)
			if err != nil {
				t.Fatalf("marshalFailures() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("marshalFailures() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnmarshalFailures(t *testing.T) {
	got, err := unmarshalFailures(`["a","b"]`)
	if err != nil {
		t.Fatalf("unmarshalFailures() failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("unmarshalFailures() = %v", got)
	}

	got, err = unmarshalFailures(`[]`)
	if err != nil || got != nil {
		t.Errorf("unmarshalFailures([]) = %v, %v, want nil, nil", got, err)
	}

	if _, err := unmarshalFailures(`{`); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.FixedZone("CET", 3600))

	out, err := parseTime(formatTime(in))
	if err != nil {
		t.Fatalf("parseTime() failed: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}
