package daggerengine

import "testing"

func TestRegistryHost(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "ghcr.io/prod9/fx:latest", want: "ghcr.io"},
		{ref: "ghcr.io/x/y:abc1234", want: "ghcr.io"},
		{ref: "localhost:5000/fx:latest", want: "localhost:5000"},
		{ref: "alpine:edge", want: "docker.io"},
		{ref: "Not A Ref", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := registryHost(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("registryHost(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}
