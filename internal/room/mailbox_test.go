package room

import (
	"sync"
	"testing"
)

func TestMailboxOrdering(t *testing.T) {
	m := newMailbox[int]()
	for i := 0; i < 100; i++ {
		if !m.put(i) {
			t.Fatalf("put %d failed", i)
		}
	}
	for i := 0; i < 100; i++ {
		v, ok := m.take()
		if !ok || v != i {
			t.Fatalf("take = %d,%v, want %d,true", v, ok, i)
		}
	}
}

func TestMailboxCloseDrains(t *testing.T) {
	m := newMailbox[string]()
	m.put("a")
	m.put("b")
	m.close()

	if m.put("c") {
		t.Error("put succeeded on a closed mailbox")
	}
	if v, ok := m.take(); !ok || v != "a" {
		t.Fatalf("take = %q,%v", v, ok)
	}
	if v, ok := m.take(); !ok || v != "b" {
		t.Fatalf("take = %q,%v", v, ok)
	}
	if _, ok := m.take(); ok {
		t.Error("take succeeded on a drained closed mailbox")
	}
}

func TestMailboxBlockingConsumer(t *testing.T) {
	m := newMailbox[int]()
	const n = 1000

	var wg sync.WaitGroup
	got := make([]int, 0, n)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			v, ok := m.take()
			if !ok {
				return
			}
			got = append(got, v)
		}
	}()

	for i := 0; i < n; i++ {
		m.put(i)
	}
	m.close()
	wg.Wait()

	if len(got) != n {
		t.Fatalf("consumed %d items, want %d", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d", i, v)
		}
	}
}
