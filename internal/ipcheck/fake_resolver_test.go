package ipcheck

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeResolver answers from fixed tables and records every name it was asked for.
// Unknown names get a not-found error like a real NXDOMAIN.
type fakeResolver struct {
	mu     sync.Mutex
	hosts  map[string][]string
	txts   map[string][]string
	ptrs   map[string][]string
	errs   map[string]error
	panics map[string]bool
	calls  []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		hosts:  make(map[string][]string),
		txts:   make(map[string][]string),
		ptrs:   make(map[string][]string),
		errs:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (f *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	return f.answer(host, f.hosts)
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	return f.answer(name, f.txts)
}

func (f *fakeResolver) LookupAddr(_ context.Context, addr string) ([]string, error) {
	return f.answer(addr, f.ptrs)
}

func (f *fakeResolver) answer(name string, table map[string][]string) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	err := f.errs[name]
	boom := f.panics[name]
	answers, ok := table[name]
	f.mu.Unlock()

	if boom {
		panic("resolver exploded for " + name)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return answers, nil
}

func (f *fakeResolver) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func timeoutErr(name string) error {
	return &net.DNSError{Err: "i/o timeout", Name: name, IsTimeout: true}
}
