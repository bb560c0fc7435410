package gitrepo

// IsRootPathForTest exposes isRootPath for testing.
var IsRootPathForTest = isRootPath
