package identity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
)

// Deterministic identifier patterns. Real deployments load these from
// config per jurisdiction; these are the reference defaults.
var (
	policyNumberPattern = regexp.MustCompile(`\bPOL-\d{4}-\d{8}\b`)
	claimNumberPattern  = regexp.MustCompile(`\bCLM-\d{4}-\d{8}\b`)
	customerIDPattern   = regexp.MustCompile(`\bCUS-\d{9}\b`)
)

// ExtractPatternCandidates scans canonical text for policy/claim/customer
// identifiers and returns HARD-class signals for each pattern match that
// also passes its checksum validator.
func ExtractPatternCandidates(text string) []model.IdentitySignal {
	var out []model.IdentitySignal
	for _, m := range policyNumberPattern.FindAllString(text, -1) {
		if validPolicyChecksum(m) {
			out = append(out, model.IdentitySignal{Name: "policy_number_match", Value: m, Weight: ClassWeight[ClassHard], Class: string(ClassHard)})
		}
	}
	for _, m := range claimNumberPattern.FindAllString(text, -1) {
		if validPolicyChecksum(m) {
			out = append(out, model.IdentitySignal{Name: "claim_number_match", Value: m, Weight: ClassWeight[ClassHard], Class: string(ClassHard)})
		}
	}
	for _, m := range customerIDPattern.FindAllString(text, -1) {
		if validCustomerChecksum(m) {
			out = append(out, model.IdentitySignal{Name: "customer_id_match", Value: m, Weight: ClassWeight[ClassHard], Class: string(ClassHard)})
		}
	}
	return out
}

// validPolicyChecksum validates the trailing digit block of a
// POL-/CLM-prefixed identifier with a mod-10 (Luhn-style) check over
// the numeric suffix, rejecting transposition typos from OCR/manual entry.
func validPolicyChecksum(id string) bool {
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		return false
	}
	return luhnValid(parts[2])
}

func validCustomerChecksum(id string) bool {
	digits := strings.TrimPrefix(id, "CUS-")
	return luhnValid(digits)
}

func luhnValid(digits string) bool {
	if len(digits) == 0 {
		return false
	}
	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		d, err := strconv.Atoi(string(digits[i]))
		if err != nil {
			return false
		}
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}

// ThreadLinkageSignal produces a HARD signal when the normalized
// message's thread headers match a prior known thread for the candidate.
func ThreadLinkageSignal(threadID, knownThreadID string) (model.IdentitySignal, bool) {
	if threadID == "" || threadID != knownThreadID {
		return model.IdentitySignal{}, false
	}
	return model.IdentitySignal{Name: "thread_linkage_match", Value: threadID, Weight: ClassWeight[ClassHard], Class: string(ClassHard)}, true
}

// SenderCRMSignal produces a HARD signal on an exact sender-address to
// CRM-record match, else a SOFT signal on a fuzzy (bounded-edit-distance)
// match under the fixed locale rules.
func SenderCRMSignal(senderAddress, crmAddress string) (model.IdentitySignal, bool) {
	sender := strings.ToLower(strings.TrimSpace(senderAddress))
	crm := strings.ToLower(strings.TrimSpace(crmAddress))
	if sender == "" || crm == "" {
		return model.IdentitySignal{}, false
	}
	if sender == crm {
		return model.IdentitySignal{Name: "sender_crm_exact_match", Value: sender, Weight: ClassWeight[ClassHard], Class: string(ClassHard)}, true
	}
	if levenshtein(sender, crm) <= 2 {
		return model.IdentitySignal{Name: "sender_crm_fuzzy_match", Value: sender, Weight: ClassWeight[ClassSoft], Class: string(ClassSoft)}, true
	}
	return model.IdentitySignal{}, false
}

// levenshtein computes the standard edit distance with fixed,
// locale-independent costs (no case folding beyond what the caller
// already applied), so the signal is deterministic across runs.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}
