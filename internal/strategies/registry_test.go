package strategies

import (
	"strings"
	"testing"

	"github.com/betbot/dicebot/internal/domain"
)

type fakePolicy struct{ id string }

func (f *fakePolicy) ID() string                    { return f.id }
func (f *fakePolicy) Decide(in Input) domain.BetIntent { return domain.BetIntent{Currency: in.Currency} }

func TestRegisterAndGet(t *testing.T) {
	Register(&fakePolicy{id: "fake-roundtrip"})

	p, err := Get("fake-roundtrip")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.ID() != "fake-roundtrip" {
		t.Fatalf("ID = %q", p.ID())
	}
}

func TestGetUnknownListsRegistered(t *testing.T) {
	Register(&fakePolicy{id: "fake-listed"})

	_, err := Get("no-such-strategy")
	if err == nil {
		t.Fatal("Get accepted unknown id")
	}
	if !strings.Contains(err.Error(), "fake-listed") {
		t.Fatalf("error %q does not name registered strategies", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register(&fakePolicy{id: "fake-dup"})

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register did not panic")
		}
	}()
	Register(&fakePolicy{id: "fake-dup"})
}

func TestListSorted(t *testing.T) {
	Register(&fakePolicy{id: "fake-zz"})
	Register(&fakePolicy{id: "fake-aa"})

	names := List()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("List not sorted: %v", names)
		}
	}
}
