// Package match holds the pure predicates shared by every optimizer pass.
//
// All predicates treat "both absent" as a match and "exactly one absent" as a mismatch.
package match

import "github.com/Ning0612/drivesync/internal/domain"

// MatchesByChecksum compares the content checksums of two optional versions
func MatchesByChecksum[V domain.Version](a, b *V) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return (*a).Sum() == (*b).Sum()
}

// MatchesVersion compares identity and checksum of two optional versions
func MatchesVersion[V domain.Version](a, b *V) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MatchesByPath compares two optional directory versions by path
func MatchesByPath(a, b *domain.DirectoryVersion) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Path == b.Path
}

// MatchesByName compares two optional file versions by name
func MatchesByName(a, b *domain.FileVersion) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Name == b.Name
}

// MatchesByNameAndChecksum compares two optional file versions by name and checksum
func MatchesByNameAndChecksum(a, b *domain.FileVersion) bool {
	return MatchesByName(a, b) && MatchesByChecksum(a, b)
}

// FilterByAction returns the ordered subsequence of actions of the given kind
func FilterByAction[V domain.Version](actions []domain.Action[V], kind domain.ActionKind) []domain.Action[V] {
	var result []domain.Action[V]
	for _, a := range actions {
		if a.Kind == kind {
			result = append(result, a)
		}
	}
	return result
}

// IsDriveMeta reports whether v is the reserved metadata file
func IsDriveMeta(v *domain.FileVersion, metaName string) bool {
	return v != nil && metaName != "" && v.Name == metaName
}

// IsDriveMetaAction reports whether the action targets the reserved metadata file
func IsDriveMetaAction(a domain.Action[domain.FileVersion], metaName string) bool {
	return IsDriveMeta(a.NewVersion, metaName) || (a.NewVersion == nil && IsDriveMeta(a.Version, metaName))
}
