package planner

import "github.com/xyproto/patchelfdd/internal/elfview"

// dynstrCandidate is one allow-listed symbol name that the planner is
// willing to destroy inside .dynstr, smaller priority preferred.
type dynstrCandidate struct {
	name     string
	priority int
}

// recognizedCandidates lists the allow-listed victim names. Keep this open
// to extension and keep priority values explicit, per design notes.
var recognizedCandidates = []dynstrCandidate{
	{name: "_ITM_deregisterTMCloneTable", priority: 1},
	{name: "__gmon_start__", priority: 10},
}

// eligibleCandidates returns the subset of recognizedCandidates whose
// safety precondition holds for this file: ITM is eligible iff .dynstr
// contains no substring "libitm.so"; __gmon_start__ is eligible iff
// .dynstr contains no substring "mcount".
func eligibleCandidates(view *elfview.View) ([]dynstrCandidate, error) {
	var eligible []dynstrCandidate

	hasLibitm, err := view.DynstrContains("libitm.so")
	if err != nil {
		return nil, err
	}
	if !hasLibitm {
		eligible = append(eligible, recognizedCandidates[0]) // ITM
	}

	hasMcount, err := view.DynstrContains("mcount")
	if err != nil {
		return nil, err
	}
	if !hasMcount {
		eligible = append(eligible, recognizedCandidates[1]) // gmon
	}

	return eligible, nil
}
