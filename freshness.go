package tdbuild

import (
	"os"
	"path/filepath"
)

// notFoundPolicy controls what mtime() returns when path does not exist.
type notFoundPolicy struct {
	sentinel  Mtime
	isError   bool
}

// onNotFoundReturn is the usual policy: missing paths read as NegInf.
func onNotFoundReturn(sentinel Mtime) notFoundPolicy {
	return notFoundPolicy{sentinel: sentinel}
}

// onNotFoundError propagates the stat failure instead of substituting a
// sentinel.
func onNotFoundError() notFoundPolicy {
	return notFoundPolicy{isError: true}
}

// freshnessOracle computes the "effective mtime" of a path: the filesystem
// stat for a file, or the recursive max over a directory tree. A pluggable
// OracleFunc can override any single path; when it returns ok=false the
// oracle falls back to the filesystem.
type freshnessOracle struct {
	alt OracleFunc
}

func newFreshnessOracle(alt OracleFunc) *freshnessOracle {
	return &freshnessOracle{alt: alt}
}

// mtime returns the effective mtime of path. shortCircuit, when finite, lets
// the directory walk stop early once the running max exceeds it — an
// optimization hint implementations should honor for large trees.
func (o *freshnessOracle) mtime(path string, np notFoundPolicy, shortCircuit Mtime) (Mtime, error) {
	if o.alt != nil {
		if m, ok, err := o.alt(path); err != nil {
			return 0, err
		} else if ok {
			return m, nil
		}
		// alt is "undefined" for this path: fall back to the filesystem.
	}
	return o.statMtime(path, np, shortCircuit)
}

func (o *freshnessOracle) statMtime(path string, np notFoundPolicy, shortCircuit Mtime) (Mtime, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if np.isError {
				return 0, err
			}
			return np.sentinel, nil
		}
		return 0, err
	}
	if !fi.IsDir() {
		return Mtime(fi.ModTime().UnixMilli()), nil
	}

	max := Mtime(fi.ModTime().UnixMilli())
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue // defensive: os.ReadDir never yields these
		}
		childMtime, err := o.statMtime(filepath.Join(path, name), onNotFoundReturn(NegInf), shortCircuit)
		if err != nil {
			return 0, err
		}
		max = maxMtime(max, childMtime)
		if max > shortCircuit {
			return PosInf, nil
		}
	}
	return max, nil
}
