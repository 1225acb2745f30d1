package wc

import (
	"strings"
)

// pathJoin is a fast alternative to path.Join designed specifically for
// root-relative resolver paths. It avoids the unnecessary path cleaning
// overhead incurred by path.Join. The provided leaf name must be
// non-empty, otherwise this function will panic.
func pathJoin(base, leaf string) string {
	// Disallow empty leaf names.
	if leaf == "" {
		panic("empty leaf name")
	}

	// When joining a path to the resolution root, we don't want to
	// concatenate.
	if base == "" {
		return leaf
	}

	// Concatenate the paths.
	return base + "/" + leaf
}

// pathDir is a fast alternative to path.Dir designed specifically for
// root-relative resolver paths. Unlike path.Dir, this function doesn't
// clean the result, so it returns an empty string for a path with no
// remaining parent. The provided path must be non-empty, otherwise this
// function will panic.
func pathDir(path string) string {
	// Disallow root paths.
	if path == "" {
		panic("empty path")
	}

	// Identify the index of the last slash in the path.
	lastSlashIndex := strings.LastIndexByte(path, '/')

	// If there is no slash, then the parent is the resolution root.
	if lastSlashIndex == -1 {
		return ""
	}

	// Trim off the slash and everything that follows.
	return path[:lastSlashIndex]
}

// pathBase is a fast alternative to path.Base designed specifically for
// root-relative resolver paths. If the provided path is empty (i.e. the
// root path), this function returns an empty string.
func pathBase(path string) string {
	// If this is the root path, then just return an empty string.
	if path == "" {
		return ""
	}

	// Identify the index of the last slash in the path.
	lastSlashIndex := strings.LastIndexByte(path, '/')

	// If there is no slash, then the path is a direct child of the
	// resolution root.
	if lastSlashIndex == -1 {
		return path
	}

	// Extract the base name.
	return path[lastSlashIndex+1:]
}

// pathIsOrUnder reports whether path is equal to root or nested under it.
// An empty root matches every path, since it represents the resolution
// root itself.
func pathIsOrUnder(path, root string) bool {
	if root == "" {
		return true
	}
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+"/")
}

// pathLess performs a sort comparison between two root-relative resolver
// paths. It returns true if first comes before second in depth-first,
// lexicographic-by-component traversal order.
func pathLess(first, second string) bool {
	// Handle trivial cases first.
	if first == second {
		return false
	} else if first == "" {
		return true
	} else if second == "" {
		return false
	}

	// Compare the path components, avoiding allocations.
	for {
		firstSlash := strings.IndexByte(first, '/')
		var firstComponent string
		if firstSlash == -1 {
			firstComponent = first
		} else {
			firstComponent = first[:firstSlash]
		}

		secondSlash := strings.IndexByte(second, '/')
		var secondComponent string
		if secondSlash == -1 {
			secondComponent = second
		} else {
			secondComponent = second[:secondSlash]
		}

		if firstComponent < secondComponent {
			return true
		} else if secondComponent < firstComponent {
			return false
		}

		if firstSlash == -1 {
			return true
		} else if secondSlash == -1 {
			return false
		}
		first = first[firstSlash+1:]
		second = second[secondSlash+1:]
	}
}
