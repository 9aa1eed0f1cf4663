package storage

import "testing"

func TestQueueConcurrencyForCPU(t *testing.T) {
	tests := []struct {
		name string
		cpu  int
		want int
	}{
		{name: "below minimum", cpu: 0, want: defaultQueueConcurrency},
		{name: "single cpu", cpu: 1, want: queuePerCPU},
		{name: "multi cpu scale", cpu: 4, want: 40},
		{name: "cap applied", cpu: 32, want: maxQueueConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queueConcurrencyForCPU(tt.cpu)
			if got != tt.want {
				t.Fatalf("queueConcurrencyForCPU(%d) = %d, want %d", tt.cpu, got, tt.want)
			}
		})
	}
}

func TestParseRedisOptionsURL(t *testing.T) {
	opts := ParseRedisOptions("redis://:secret@cache.local:6380/2")
	if opts.Addr != "cache.local:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: addr=%s db=%d", opts.Addr, opts.DB)
	}
	if opts.TLSConfig != nil {
		t.Fatal("expected plain connection")
	}
}

func TestParseRedisOptionsAzureStyle(t *testing.T) {
	opts := ParseRedisOptions("board.redis.cache.windows.net:6380,password=p=w,ssl=True,abortConnect=False")
	if opts.Addr != "board.redis.cache.windows.net:6380" {
		t.Fatalf("unexpected addr: %s", opts.Addr)
	}
	if opts.Password != "p=w" {
		t.Fatalf("unexpected password: %q", opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS to be enabled")
	}
}

func TestParseRedisOptionsBareAddress(t *testing.T) {
	opts := ParseRedisOptions("localhost:6379")
	if opts.Addr != "localhost:6379" || opts.Password != "" || opts.TLSConfig != nil {
		t.Fatalf("unexpected options: %#v", opts)
	}
}
