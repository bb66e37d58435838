package otel

import (
	"context"
	"testing"
)

func TestSetupSkipsProviderWithoutEndpoint(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{name: "blank endpoint", opts: Options{Endpoint: "  ", SampleRatio: 1}},
		{name: "disabled", opts: Options{Endpoint: "http://localhost:4318", Disabled: true, SampleRatio: 1}},
		{name: "disabled ignores bad ratio", opts: Options{Endpoint: "http://localhost:4318", Disabled: true, SampleRatio: 7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), "valuestore", tc.opts)
			if err != nil {
				t.Fatalf("setup: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown: %v", err)
			}
		})
	}
}

func TestSetupRegistersProvider(t *testing.T) {
	// 192.0.2.0/24 is reserved for documentation; nothing is exported.
	shutdown, err := Setup(context.Background(), "valuestore", Options{Endpoint: "http://192.0.2.1:4318", SampleRatio: 0.5})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSamplerRejectsOutOfRangeRatio(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.5} {
		if _, err := (Options{SampleRatio: ratio}).sampler(); err == nil {
			t.Fatalf("sampler(%v) expected error", ratio)
		}
	}
	if _, err := (Options{SampleRatio: 0}).sampler(); err != nil {
		t.Fatalf("sampler(0): %v", err)
	}
}
