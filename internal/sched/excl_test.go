package sched

import "testing"

func TestExclLockUnlock(t *testing.T) {
	e := NewExcl(42)
	v := e.Lock()
	*v = 43
	e.Unlock()
	v2 := e.Lock()
	if *v2 != 43 {
		t.Errorf("value = %d, want 43", *v2)
	}
	e.Unlock()
}

func TestExclReentrantLockPanics(t *testing.T) {
	e := NewExcl(0)
	e.Lock()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on re-entrant Lock")
		}
	}()
	e.Lock()
}

func TestExclUnlockWithoutLockPanics(t *testing.T) {
	e := NewExcl(0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Unlock without Lock")
		}
	}()
	e.Unlock()
}

func TestExclLockassert(t *testing.T) {
	e := NewExcl(0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from Lockassert while unlocked")
		}
	}()
	e.Lockassert()
}
