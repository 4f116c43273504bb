package sdk

import "testing"

func TestParseManifest(t *testing.T) {
	doc := []byte(`
name: foro-gofmt
version: 1.0.0
description: formats Go source
extensions: [".go"]
author: jdoe
`)
	m, err := ParseManifest(doc)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Name != "foro-gofmt" || m.Version != "1.0.0" {
		t.Errorf("m = %+v", m)
	}
	if len(m.Extensions) != 1 || m.Extensions[0] != ".go" {
		t.Errorf("m.Extensions = %v", m.Extensions)
	}
}

func TestParseManifest_MissingName(t *testing.T) {
	_, err := ParseManifest([]byte(`version: 1.0.0`))
	if err == nil {
		t.Fatal("expected an error for a manifest missing name")
	}
}

func TestParseManifest_MissingVersion(t *testing.T) {
	_, err := ParseManifest([]byte(`name: foro-gofmt`))
	if err == nil {
		t.Fatal("expected an error for a manifest missing version")
	}
}

func TestManifest_MarshalRoundTrip(t *testing.T) {
	m := &Manifest{Name: "foro-gofmt", Version: "1.0.0"}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("ParseManifest(Marshal output): %v", err)
	}
	if again.Name != m.Name || again.Version != m.Version {
		t.Errorf("round trip mismatch: %+v vs %+v", again, m)
	}
}
