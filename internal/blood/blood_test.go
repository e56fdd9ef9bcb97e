package blood

import "testing"

func TestCompatibleDonorGroupsAPlus(t *testing.T) {
	got := CompatibleDonorGroups("A+")
	want := map[string]bool{"A+": true, "A-": true, "O+": true, "O-": true}
	if len(got) != len(want) {
		t.Fatalf("A+ donors = %#v", got)
	}
	for _, g := range got {
		if !want[g] {
			t.Fatalf("unexpected donor group %q for A+ recipient", g)
		}
	}
}

func TestONegativeIsUniversalDonor(t *testing.T) {
	for _, recipient := range Groups {
		found := false
		for _, d := range CompatibleDonorGroups(recipient) {
			if d == "O-" {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("O- missing from donor list for %s", recipient)
		}
	}
}

func TestABPositiveIsUniversalRecipient(t *testing.T) {
	donors := CompatibleDonorGroups("AB+")
	if len(donors) != len(Groups) {
		t.Fatalf("AB+ accepts %d groups, want %d", len(donors), len(Groups))
	}
}

func TestValidGroup(t *testing.T) {
	if !ValidGroup("O+") || ValidGroup("C+") || ValidGroup("") {
		t.Fatal("ValidGroup misclassified input")
	}
}

func TestUrgencyLevel(t *testing.T) {
	cases := map[string]int{"low": 1, "medium": 2, "high": 3, "critical": 4, "unknown": 2}
	for in, want := range cases {
		if got := UrgencyLevel(in); got != want {
			t.Fatalf("UrgencyLevel(%q) = %d, want %d", in, got, want)
		}
	}
	if ValidUrgency("unknown") {
		t.Fatal("unknown urgency should be invalid")
	}
}
