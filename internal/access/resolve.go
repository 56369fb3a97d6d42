// Package access resolves the effective permission set of a user inside a
// branch context.
package access

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	roledomain "github.com/veloretail/velo/internal/role/domain"
)

// Resolve computes the union of permissions over the user's grants that apply
// in the given branch context. Global grants (nil branch) always apply; branch
// grants apply only when they match the context. A nil branchID means the
// caller is operating outside any branch, so only global grants count.
// The result is sorted and free of duplicates.
func Resolve(grants []roledomain.RoleGrant, branchID *snowflake.ID) []string {
	set := make(map[string]bool)
	for _, g := range grants {
		if !applies(g.BranchID, branchID) {
			continue
		}
		for _, p := range g.Permissions {
			set[p] = true
		}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func applies(grantBranch, contextBranch *snowflake.ID) bool {
	if grantBranch == nil {
		return true
	}
	return contextBranch != nil && *grantBranch == *contextBranch
}
