package registry

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
)

func TestSnapshotJSON(t *testing.T) {
	s := NewSnapshot("Canvas")
	s.Set("zoom", 1.5)
	s.Set("translation.x", -2)
	s.Set("zoom", 2)

	data, err := jsonvalue.Marshal(s.JSON())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if want := `{"zoom":2,"translation.x":-2}`; string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}

func TestSnapshotJSONBoundsPrecision(t *testing.T) {
	s := NewSnapshot("Canvas")
	s.Set("zoom", 0.33000000000000007)
	s.Set("translation.x", -1.1102230246251565e-16)
	s.Set("rgb", 1.0000000001, 0.5)

	data, err := jsonvalue.Marshal(s.JSON())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if want := `{"zoom":0.33,"translation.x":-1.11022302e-16,"rgb":[1,0.5]}`; string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}

func TestCanvasSnapshotFitsPropertyExchange(t *testing.T) {
	c := NewCanvas()
	c.ZoomAround(0, 0, -0.7)
	c.ZoomAround(0, 0, 0.1)
	c.PanBy(-0.1, -0.1)
	c.PanBy(-0.2, -0.2)
	c.PanBy(0.3, 0.3)

	data, err := jsonvalue.MarshalASCII(c.Snapshot().JSON())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if len(data) > 127 {
		t.Errorf("snapshot is %d bytes: %s", len(data), data)
	}

	// Worst case: every value needs all digits and a three-digit exponent.
	c = NewCanvas(WithInitialZoom(0.123456789), WithInitialTranslation(-1.23456789e-100, -1.23456789e-100))
	data, err = jsonvalue.MarshalASCII(c.Snapshot().JSON())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if len(data) > 127 {
		t.Errorf("snapshot is %d bytes: %s", len(data), data)
	}
}

func TestSnapshotProperties(t *testing.T) {
	s := NewSnapshot("Canvas")
	s.Set("rgb", 1, 0.5, 0)

	want := map[string][]float64{"rgb": {1, 0.5, 0}}
	if diff := cmp.Diff(want, s.Properties()); diff != "" {
		t.Errorf("Properties mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSnapshot(t *testing.T) {
	v, err := jsonvalue.Parse([]byte(`{"zoom":[1.2],"translation.x":-4,"label":"x","mixed":[1,"a"]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	snap, err := ParseSnapshot("Canvas", v)
	if err != nil {
		t.Fatalf("ParseSnapshot failed: %v", err)
	}
	want := map[string][]float64{"zoom": {1.2}, "translation.x": {-4}}
	if diff := cmp.Diff(want, snap.Properties()); diff != "" {
		t.Errorf("Properties mismatch (-want +got):\n%s", diff)
	}
	if snap.Handler != "Canvas" {
		t.Errorf("Handler = %q", snap.Handler)
	}

	if _, err := ParseSnapshot("x", jsonvalue.Number(1)); !errors.Is(err, ErrNotObject) {
		t.Errorf("non-object: error = %v", err)
	}
}

func TestSnapshotRoundTripThroughJSON(t *testing.T) {
	snap := NewCanvas(WithInitialZoom(3)).Snapshot()
	back, err := ParseSnapshot("", snap.JSON())
	if err != nil {
		t.Fatalf("ParseSnapshot failed: %v", err)
	}
	if diff := cmp.Diff(snap.Properties(), back.Properties()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
