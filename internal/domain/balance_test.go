package domain

import "testing"

func TestBalance_LockRelease(t *testing.T) {
	b := &Balance{Amount: 1000000}

	b.Lock(300000)
	if b.Amount != 700000 || b.Locked != 300000 {
		t.Fatalf("Expected 700000/300000, got %d/%d", b.Amount, b.Locked)
	}

	refund := b.Release(300000, 10000)
	if refund != 310000 {
		t.Errorf("Expected refund 310000, got %d", refund)
	}
	if b.Amount != 1010000 || b.Locked != 0 {
		t.Errorf("Expected 1010000/0, got %d/%d", b.Amount, b.Locked)
	}
	b.VerifyInvariant()
}

func TestBalance_ReleaseFloorsAtZero(t *testing.T) {
	b := &Balance{Amount: 50000}
	b.Lock(50000)
	if b.Equity() != 50000 {
		t.Errorf("Expected equity 50000 while locked, got %d", b.Equity())
	}

	if refund := b.Release(50000, -80000); refund != 0 {
		t.Errorf("Expected refund 0 for loss beyond margin, got %d", refund)
	}
	if b.Amount != 0 {
		t.Errorf("Expected amount 0, got %d", b.Amount)
	}
	b.VerifyInvariant()
}

func TestBalance_Panics(t *testing.T) {
	t.Run("lock beyond cash", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Should have panicked")
			}
		}()
		b := &Balance{Amount: 10}
		b.Lock(11)
	})

	t.Run("negative amount invariant", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Should have panicked")
			}
		}()
		b := &Balance{Amount: -1}
		b.VerifyInvariant()
	})
}
