package blood

// Donor-to-recipient compatibility, keyed by the recipient's blood group.
// O- serves every recipient; AB+ accepts every donor.
var compatibleDonors = map[string][]string{
	"A+":  {"A+", "A-", "O+", "O-"},
	"A-":  {"A-", "O-"},
	"B+":  {"B+", "B-", "O+", "O-"},
	"B-":  {"B-", "O-"},
	"AB+": {"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"},
	"AB-": {"A-", "B-", "AB-", "O-"},
	"O+":  {"O+", "O-"},
	"O-":  {"O-"},
}

var urgencyLevels = map[string]int{
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

// Groups lists the eight valid blood groups.
var Groups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// CompatibleDonorGroups returns the donor groups able to serve a recipient
// of the requested group. Unknown groups yield nil.
func CompatibleDonorGroups(requested string) []string {
	donors, ok := compatibleDonors[requested]
	if !ok {
		return nil
	}
	out := make([]string, len(donors))
	copy(out, donors)
	return out
}

func ValidGroup(group string) bool {
	_, ok := compatibleDonors[group]
	return ok
}

func ValidUrgency(urgency string) bool {
	_, ok := urgencyLevels[urgency]
	return ok
}

// UrgencyLevel maps urgency to the 1..4 scale fed to the models. Unknown
// values map to medium.
func UrgencyLevel(urgency string) int {
	if lvl, ok := urgencyLevels[urgency]; ok {
		return lvl
	}
	return urgencyLevels["medium"]
}
